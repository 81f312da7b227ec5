package tui

import "github.com/runoshun/label-crew/internal/domain"

// Msg is the sealed interface for all TUI messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgProjectLoaded is sent when the project has been fetched.
type MsgProjectLoaded struct {
	Project domain.Project
}

func (MsgProjectLoaded) sealed() {}

// MsgTasksLoaded is sent when tasks are loaded from the task service.
type MsgTasksLoaded struct {
	Tasks []domain.Task
}

func (MsgTasksLoaded) sealed() {}

// MsgLabelingStarted is sent once a task is open in the labeling pane.
type MsgLabelingStarted struct {
	Err error
}

func (MsgLabelingStarted) sealed() {}

// MsgActionDone is sent when a widget action has finished.
type MsgActionDone struct {
	Err    error
	Action string
}

func (MsgActionDone) sealed() {}

// MsgHostEvent is sent when the host invoked one of its events.
type MsgHostEvent struct {
	Event string
}

func (MsgHostEvent) sealed() {}

// MsgHistoryChanged is sent when the label-stream history moved or grew.
type MsgHistoryChanged struct{}

func (MsgHistoryChanged) sealed() {}

// MsgError is sent when an error occurs.
type MsgError struct {
	Err error
}

func (MsgError) sealed() {}

// MsgClearError is sent to clear the current error message.
type MsgClearError struct{}

func (MsgClearError) sealed() {}
