package domain

import "strings"

// Project holds the labeling setup shared by every task.
// Fields are ordered to minimize memory padding.
type Project struct {
	Title           string `json:"title" yaml:"title"`
	LabelConfig     string `json:"label_config" yaml:"label_config"`
	LabelConfigLine string `json:"label_config_line,omitempty" yaml:"label_config_line,omitempty"`
	Instruction     string `json:"instruction,omitempty" yaml:"instruction,omitempty"`
}

// Config returns the labeling configuration handed to the widget.
// The single-line form is preferred when the service provides it.
func (p Project) Config() string {
	if p.LabelConfigLine != "" {
		return p.LabelConfigLine
	}
	return p.LabelConfig
}

// Instructions returns the trimmed instruction text, or "" when blank.
func (p Project) Instructions() string {
	return strings.TrimSpace(p.Instruction)
}

// DefaultLabelConfig is written to new projects.
const DefaultLabelConfig = `<View>
  <Text name="text" value="$text"/>
  <Choices name="sentiment" toName="text">
    <Choice value="Positive"/>
    <Choice value="Negative"/>
    <Choice value="Neutral"/>
  </Choices>
</View>`
