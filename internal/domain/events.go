package domain

// Host events emitted by the session controller.
// The names are part of the host protocol and match what embedding pages listen for.
const (
	EventWidgetLoad       = "labelStudioLoad"
	EventAnnotationSet    = "completionSet"
	EventSubmitAnnotation = "submitCompletion"
	EventUpdateAnnotation = "updateCompletion"
	EventDeleteAnnotation = "deleteCompletion"
	EventSkipTask         = "skipTask"
	EventGroundTruth      = "groundTruth"
	EventEntityCreate     = "onEntityCreate"
	EventEntityDelete     = "onEntityDelete"
	EventSelectAnnotation = "onSelectCompletion"
)
