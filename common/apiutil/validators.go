package apiutil

import (
	"reflect"
	"strings"

	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/go-playground/validator/v10"
)

func NewValidator() *Validator {
	validator := validator.New()
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator}
}

type Validator struct {
	validator *validator.Validate
}

// Validate checks i against its struct tags. Failures come back as an
// errors.Invalid carrying message and one field entry per failed tag.
func (v *Validator) Validate(i interface{}, message string) error {
	if err := v.validator.Struct(i); err != nil {
		validationErr := errors.Invalid.Explain("%s", message)
		var fieldsError validator.ValidationErrors
		if errors.As(err, &fieldsError) {
			for _, fieldErr := range fieldsError {
				validationErr = validationErr.WithField(fieldErr.Tag(), fieldErr.Field(), "")
			}
		}
		return validationErr
	}
	return nil
}
