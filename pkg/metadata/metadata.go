// Package metadata builds the token metadata document that a mint references.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/doodlemint/doodlemint/pkg/content"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Record is the metadata document for one token.
type Record struct {
	Name        string          `json:"name" validate:"required,max=256"`
	Description string          `json:"description" validate:"max=4096"`
	Image       content.Locator `json:"image" validate:"required"`
}

// InvalidRecordError reports which fields of a record failed validation.
type InvalidRecordError struct {
	Fields []string
	err    error
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid metadata record: %s", strings.Join(e.Fields, ", "))
}

func (e *InvalidRecordError) Unwrap() error { return e.err }

// Assemble builds a record. The image locator is kept exactly as given.
func Assemble(name, description string, image content.Locator) (Record, error) {
	r := Record{
		Name:        name,
		Description: description,
		Image:       image,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (r Record) Validate() error {
	return fieldErrors(validate.Struct(r))
}

// ValidateText checks every field except the image, which is only known once
// the image has been published.
func (r Record) ValidateText() error {
	return fieldErrors(validate.StructExcept(r, "Image"))
}

func fieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return &InvalidRecordError{Fields: fields, err: err}
	}
	return err
}

// Marshal serializes the record as the JSON document that gets published.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// document is the minimum a fetched record needs to be displayed. Length
// limits are not enforced on documents written by other minters.
type document struct {
	Name  string          `validate:"required"`
	Image content.Locator `validate:"required"`
}

// Parse decodes a published metadata document. Unknown fields are ignored.
// A document without a name or an image, including a JSON null, is an
// *InvalidRecordError.
func Parse(b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decoding metadata: %w", err)
	}
	if err := fieldErrors(validate.Struct(document{Name: r.Name, Image: r.Image})); err != nil {
		return Record{}, err
	}
	return r, nil
}
