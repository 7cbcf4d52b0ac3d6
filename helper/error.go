package helper

import "fmt"

// NewError wraps err with a context string, preserving the original error
// (and any model.KindedError it carries) for errors.As/errors.Is while still
// giving a readable "context: message" string at the log line.
func NewError(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%v: %w", context, err)
}
