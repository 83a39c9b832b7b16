// Package schemas validates structured uploads against embedded JSON Schemas.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed resume.schema.json
var resumeSchema []byte

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		parts[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name  string
	Cause error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %v", e.Name, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ResumeSchema returns the embedded structured resume schema.
func ResumeSchema() []byte {
	return resumeSchema
}

// ValidateResume validates a structured resume document.
func ValidateResume(doc []byte) error {
	return ValidateBytes("resume.schema.json", resumeSchema, doc)
}

// ValidateBytes validates doc against schema. A document that is not JSON
// at all is reported as a ValidationError on the root.
func ValidateBytes(name string, schema, doc []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schema)
	if _, err := gojsonschema.NewSchema(schemaLoader); err != nil {
		return &SchemaLoadError{Name: name, Cause: err}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
