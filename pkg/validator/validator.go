package validator

import (
	"reflect"
	"strings"

	validators "github.com/go-playground/validator/v10"
)

// Validator interface
type Validator interface {
	ValidateStruct(inf interface{}) error
	RegisterValidation(tag string, fn validators.Func) error
}

type validator struct {
	validator *validators.Validate
}

// New Validator func
func New() Validator {
	v := validators.New()
	// Report json names so field errors line up with criteria field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &validator{
		validator: v,
	}
}

// ValidateStruct func
func (v *validator) ValidateStruct(inf interface{}) error {

	return v.validator.Struct(inf)
}

// RegisterValidation func - Adds a custom tag
func (v *validator) RegisterValidation(tag string, fn validators.Func) error {
	return v.validator.RegisterValidation(tag, fn)
}

// FieldErrors returns the json field names that failed validation, in order.
func FieldErrors(err error) []string {
	verrs, ok := err.(validators.ValidationErrors)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
