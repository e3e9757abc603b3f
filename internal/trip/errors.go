package trip

import (
	"errors"
	"strings"
)

var (
	ErrUpstreamUnavailable = errors.New("directions provider unavailable")
	ErrRouteNotFound       = errors.New("no route between the given locations")
	ErrPersistence         = errors.New("persistence failure")
	ErrGeocodingDisabled   = errors.New("geocoding is not configured")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every rejected request field at once.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}
