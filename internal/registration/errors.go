package registration

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds. Stores and the service wrap these so the web layer can pick
// a message with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("geocoding unavailable")
	ErrStorage    = errors.New("storage failure")
	ErrConflict   = errors.New("phone already registered")
)

// ValidationError carries per-field messages keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsConflict reports whether err marks a phone that is already registered.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
