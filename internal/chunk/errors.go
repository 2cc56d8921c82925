package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when a name has an odd token count or a
	// token pair without the container extension.
	ErrInvalidFormat = errors.New("chunk: invalid name format")

	// ErrInvalidComponent is returned for a token with an unknown prefix.
	ErrInvalidComponent = errors.New("chunk: invalid component")

	// ErrInvalidNumericID is returned when a numeric id does not parse.
	ErrInvalidNumericID = errors.New("chunk: invalid numeric id")
)

// ParseError records a failed Parse.
type ParseError struct {
	Text  string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Text)
	}
	return fmt.Sprintf("%v: %q in %q", e.Err, e.Token, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
