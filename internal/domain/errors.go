package domain

import "errors"

// Domain errors.
var (
	ErrWidgetNotReady         = errors.New("annotation widget is not loaded")
	ErrWidgetUnavailable      = errors.New("annotation widget is not available")
	ErrNoCurrentTask          = errors.New("no task is being labeled")
	ErrNoAnnotationSelected   = errors.New("no annotation selected")
	ErrTaskNotFound           = errors.New("task not found")
	ErrAnnotationNotFound     = errors.New("annotation not found")
	ErrAnnotationNotPersisted = errors.New("annotation has not been submitted yet")
	ErrHistoryBoundary        = errors.New("no history entry in that direction")
	ErrNotInitialized         = errors.New("project not initialized (run 'labelcrew init' first)")
	ErrAlreadyInitialized     = errors.New("project already initialized")
	ErrUnknownAction          = errors.New("unknown action")
	ErrMissingParam           = errors.New("missing or invalid parameter")
	ErrInvalidBody            = errors.New("invalid request body")
	ErrInvalidMode            = errors.New("invalid mode")
	ErrConfigExists           = errors.New("config file already exists")
	ErrInvalidGateway         = errors.New("gateway must be an http or https URL")
	ErrEncryptionKeyMissing   = errors.New("tasks.encrypt is set but $LABELCREW_ENCRYPTION_KEY is empty")
	ErrNoTasksInFile          = errors.New("no tasks found in file")
	ErrInterfaceDisabled      = errors.New("interface is disabled")
	ErrUnknownChoice          = errors.New("unknown choice")
	ErrUnsupportedFormat      = errors.New("unsupported format")
)
