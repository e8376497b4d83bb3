package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodatetime", func(fl validator.FieldLevel) bool {
		_, ok := ParseTime(fl.Field().String())
		return ok
	})
	return v
}

// Validator returns the validator shared by the domain types.
func Validator() *validator.Validate { return validate }

func check(entity string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Entity: entity, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fe.Field()] = fe.Tag()
	}
	return ve
}

func (e *ValidationError) add(field, tag string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = tag
}

// merge folds an extra field failure into err, creating a ValidationError
// when err is nil.
func merge(entity string, err error, field, tag string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.add(field, tag)
		return ve
	}
	if err != nil {
		return err
	}
	ve = &ValidationError{Entity: entity}
	ve.add(field, tag)
	return ve
}
