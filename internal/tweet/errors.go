package tweet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingField is matched by errors from required keys absent in a message.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField is matched when a key holds a value of the wrong type.
	ErrInvalidField = errors.New("invalid field")
	// ErrParse is matched when created_at cannot be parsed.
	ErrParse = errors.New("unparsable timestamp")
	// ErrInvalidRecord is matched by Validate failures.
	ErrInvalidRecord = errors.New("invalid record")
)

// MissingFieldError names the dotted path of an absent required key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return "missing field " + quote(e.Field) }

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// InvalidFieldError reports a present key holding an unexpected JSON type.
type InvalidFieldError struct {
	Field string
	Want  string
	Got   any
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("field %s: want %s, got %T", quote(e.Field), e.Want, e.Got)
}

func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }

// ParseError carries the created_at value that failed to parse.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse created_at %s: %v", quote(e.Value), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ValidationError lists every constraint a record violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid record: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRecord }

func tooLong(field string, n, max int) string {
	return fmt.Sprintf("%s: length %d exceeds %d", field, n, max)
}

func quote(s string) string { return strconv.Quote(s) }
