package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTotalMismatch is returned when submitted prices or totals differ from
// what the server computes from its own catalog
var ErrTotalMismatch = errors.New("total mismatch")

// InputError reports a request the caller has to fix
type InputError struct {
	Fields  []string
	Message string
}

func (e *InputError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func invalid(message string, fields ...string) error {
	return &InputError{Fields: fields, Message: message}
}

// IsInputError reports whether err is (or wraps) an *InputError
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
