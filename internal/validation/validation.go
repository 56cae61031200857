// Package validation runs go-playground struct validation and reports
// failures as pricing.ValidationError keyed by JSON field path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/exequial/internal/pricing"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates v and returns a *pricing.ValidationError, or nil.
func Struct(v any) error {
	verr := &pricing.ValidationError{}
	if err := Into(verr, v); err != nil {
		return err
	}
	return verr.OrNil()
}

// Into validates v and adds every field failure to verr. It only returns an
// error when v cannot be validated at all.
func Into(verr *pricing.ValidationError, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), message(fe))
	}
	return nil
}

// fieldPath drops the root struct name: "Quotation.titular.email" -> "titular.email".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es requerido"
	case "email":
		return "correo electrónico inválido"
	case "gte":
		return "debe ser mayor o igual a " + fe.Param()
	case "min":
		return "debe tener al menos " + fe.Param() + " caracteres"
	case "max":
		return "debe tener máximo " + fe.Param() + " caracteres"
	case "numeric":
		return "debe contener solo números"
	case "oneof":
		return "debe ser uno de: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "valor inválido"
	}
}
