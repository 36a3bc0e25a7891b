package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey         = errors.New("missing key")
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	ErrUnknownTemplate    = errors.New("unknown template")
)

// MissingKeyError reports placeholders that had no value at render time.
type MissingKeyError struct {
	Template string
	Keys     []string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("template %q: missing key(s): %s", e.Template, strings.Join(e.Keys, ", "))
}

func (e *MissingKeyError) Unwrap() error {
	return ErrMissingKey
}

// UnknownPlaceholderError reports an override referencing a placeholder its
// built-in counterpart does not define.
type UnknownPlaceholderError struct {
	Template string
	Path     string
	Keys     []string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("override %s for %q: unknown placeholder(s): %s", e.Path, e.Template, strings.Join(e.Keys, ", "))
}

func (e *UnknownPlaceholderError) Unwrap() error {
	return ErrUnknownPlaceholder
}
