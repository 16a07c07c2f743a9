package common

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// docTokenRegex restricts collection names and document IDs to characters which are safe both in
// registry keys and in KeyValue bucket keys
var docTokenRegex = regexp.MustCompile(`^[A-Za-z0-9_=-]+$`)

// GetValidator define a validator with the custom "doc_token" tag installed
func GetValidator() *validator.Validate {
	validate := validator.New()
	// Registering a validation under a fixed tag with a static func can not fail
	_ = validate.RegisterValidation("doc_token", func(fl validator.FieldLevel) bool {
		return docTokenRegex.MatchString(fl.Field().String())
	})
	return validate
}

type collectionNameWrapper struct {
	Name string `validate:"required,max=128,doc_token"`
}

type documentIDWrapper struct {
	ID string `validate:"required,max=256,doc_token"`
}

// ValidateCollectionName validate a collection name
func ValidateCollectionName(name string, validate *validator.Validate) error {
	if err := validate.Struct(&collectionNameWrapper{Name: name}); err != nil {
		return fmt.Errorf("invalid collection name '%s': %w", name, err)
	}
	return nil
}

// ValidateDocumentID validate a document ID
func ValidateDocumentID(id string, validate *validator.Validate) error {
	if err := validate.Struct(&documentIDWrapper{ID: id}); err != nil {
		return fmt.Errorf("invalid document ID '%s': %w", id, err)
	}
	return nil
}
