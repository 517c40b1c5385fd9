package albums

import "errors"

// Fixed user-facing validation messages.
const (
	MsgTitleRequired     = "title required"
	MsgCreationFailed    = "creation failed"
	MsgFileRequired      = "file required"
	MsgUnsupportedFormat = "unsupported format"
)

var (
	// ErrAlbumNotFound is returned when an album id does not resolve.
	ErrAlbumNotFound = errors.New("album not found")

	// ErrStoreUnavailable is returned when the record store cannot be
	// reached.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// ValidationError is a user-correctable input problem. Its message is
// shown verbatim on the originating form; it never carries internal
// error detail.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// AsValidation extracts a ValidationError from err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
