package domain

import "errors"

var (
	// ErrStoryNotFound indicates the story content could not be located.
	ErrStoryNotFound = errors.New("story not found")
	// ErrChapterNotFound indicates a chapter id is not present in its story.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrNoQuestion is returned when an answer is submitted for a chapter without a question.
	ErrNoQuestion = errors.New("chapter has no question")
)

// ValidationError reports a story document that cannot be meaningfully
// rendered or navigated. It is the only parse failure that propagates to
// callers; everything else degrades to a fallback value.
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

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
