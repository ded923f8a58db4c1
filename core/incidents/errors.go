package incidents

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"watchpost/core/auth"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConflict          = errors.New("conflict")
	ErrGeocodeFailed     = errors.New("geocode failed")
	ErrUnauthenticated   = auth.ErrUnauthenticated
)

// ValidationError lists offending fields and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func wrap(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
