package domain

import "fmt"

// Mode is the session mode of the labeling console.
type Mode string

// Session modes.
const (
	// ModeExplorer lets the user pick which task and annotation to view.
	ModeExplorer Mode = "explorer"
	// ModeLabelStream pulls the next task after every terminal action.
	ModeLabelStream Mode = "labelstream"
)

// ParseMode parses a mode name. Empty means explorer.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeExplorer:
		return ModeExplorer, nil
	case ModeLabelStream:
		return ModeLabelStream, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// AutoAnnotation asks the controller to select the first existing annotation.
const AutoAnnotation = "auto"

// Interface flags understood by annotation widgets.
const (
	InterfaceBasic             = "basic"
	InterfaceSkip              = "skip"
	InterfacePredictions       = "predictions"
	InterfacePredictionsMenu   = "predictions:menu"
	InterfaceCompletionsMenu   = "completions:menu"
	InterfaceCompletionsAddNew = "completions:add-new"
	InterfaceCompletionsDelete = "completions:delete"
	InterfaceSideColumn        = "side-column"
)

// DefaultInterfaces is the feature set enabled when the config names none.
var DefaultInterfaces = []string{
	InterfaceBasic,
	InterfaceSkip,
	InterfacePredictions,
	InterfacePredictionsMenu,
	InterfaceCompletionsMenu,
	InterfaceCompletionsAddNew,
	InterfaceCompletionsDelete,
	InterfaceSideColumn,
}

// User identifies the annotator.
type User struct {
	Name  string `json:"name" toml:"name"`
	Email string `json:"email,omitempty" toml:"email,omitempty"`
}
