package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LoadFailure reports that the catalog as a whole could not be loaded.
type LoadFailure struct {
	Err error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("catalog: load failed: %v", e.Err)
}

func (e *LoadFailure) Unwrap() error {
	return e.Err
}

// ValidationFailure reports the fields of a candidate case that were
// rejected. Keys use the JSON field names; nested date parts appear as
// "date.month".
type ValidationFailure struct {
	Fields map[string]string
}

func (e *ValidationFailure) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "catalog: invalid case: " + strings.Join(parts, "; ")
}

// newValidationFailure flattens ozzo validation errors into a
// ValidationFailure. Errors that are not field errors are returned as is.
func newValidationFailure(err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string)
	flatten("", verrs, fields)
	return &ValidationFailure{Fields: fields}
}

func flatten(prefix string, verrs validation.Errors, into map[string]string) {
	for k, v := range verrs {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		var nested validation.Errors
		if errors.As(v, &nested) {
			flatten(key, nested, into)
			continue
		}
		into[key] = v.Error()
	}
}
