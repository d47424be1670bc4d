package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures for presentation.
type Kind int

const (
	KindUnknown Kind = iota
	ConfigMissing
	ValidationError
	ServiceCallFailed
	EmptyResponse
	PersistenceFailed
)

func (k Kind) String() string {
	switch k {
	case ConfigMissing:
		return "config_missing"
	case ValidationError:
		return "validation_error"
	case ServiceCallFailed:
		return "service_call_failed"
	case EmptyResponse:
		return "empty_response"
	case PersistenceFailed:
		return "persistence_failed"
	default:
		return "unknown"
	}
}

var (
	// ErrNothingToRate is returned by Commit when no image awaits feedback.
	ErrNothingToRate = errors.New("no generated image awaiting feedback")
	// ErrBusy is returned when a session is already generating.
	ErrBusy = errors.New("generation already in progress")
	// ErrEmptyText is returned for blank source text.
	ErrEmptyText = errors.New("source text is empty")
	// ErrEmptyImage is returned when a renderer produced no bytes.
	ErrEmptyImage = errors.New("renderer returned no image data")
)

// Error is the typed failure surfaced by Session operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
	// Hint tells the user how to recover.
	Hint string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// HintOf returns the recovery hint of the first *Error in err's chain.
func HintOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Hint
	}
	return ""
}

const (
	hintConfig      = "set the API key for the selected provider (see .env.example) and restart"
	hintValidation  = "correct the input and submit again"
	hintAnalysis    = "check the API key, model name and network connection, then submit again"
	hintEmpty       = "the model returned no usable prompt; rephrase the text or change the temperature and submit again"
	hintRender      = "make sure the key has access to the image model, or enable PLACEHOLDER_FALLBACK"
	hintPersistence = "check that the image directory and feedback log are writable, then rate again"
)
