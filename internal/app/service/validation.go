package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/products-inventory-api/internal/app/dto"
	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/shopspring/decimal"
)

const msgNameTaken = "The name has already been taken."

var indexReplacer = strings.NewReplacer("[", ".", "]", "")

// Validator checks request DTOs and reports failures keyed by JSON field name
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that names fields after their json tags
// and compares decimals numerically
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		var d decimal.Decimal
		switch value := field.Interface().(type) {
		case decimal.Decimal:
			d = value
		case dto.Amount:
			d = value.Decimal
		default:
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{}, dto.Amount{})

	return &Validator{validate: v}
}

// Validate runs the struct rules. Fields that failed to decode keep only their
// type message. The returned error is always non-nil; callers check Empty.
func (v *Validator) Validate(s any) *domain.ValidationError {
	verr := domain.NewValidationError()

	var mismatched map[string]string
	if carrier, ok := s.(typeErrorCarrier); ok {
		mismatched = carrier.TypeErrors()
		for field, msg := range mismatched {
			verr.Add(field, msg)
		}
	}

	err := v.validate.Struct(s)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("body", "The request body is invalid.")
		return verr
	}

	for _, fe := range fieldErrs {
		field := fieldName(fe)
		if _, ok := mismatched[topLevel(field)]; ok {
			continue
		}
		verr.Add(field, message(field, fe))
	}
	return verr
}

type typeErrorCarrier interface {
	TypeErrors() map[string]string
}

// topLevel turns "ids.0" into "ids"
func topLevel(field string) string {
	top, _, _ := strings.Cut(field, ".")
	return top
}

// fieldName turns "ids[0]" into "ids.0"
func fieldName(fe validator.FieldError) string {
	return indexReplacer.Replace(fe.Field())
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", field, fe.Param())
	case "min":
		switch fe.Kind() {
		case reflect.Slice, reflect.Array:
			return fmt.Sprintf("The %s field must have at least %s items.", field, fe.Param())
		case reflect.String:
			return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}

// TypeMismatchMessage describes a JSON value of the wrong type for a field
func TypeMismatchMessage(field string, target reflect.Type) string {
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	if target == reflect.TypeOf(decimal.Decimal{}) {
		return fmt.Sprintf("The %s field must be a number.", field)
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("The %s field must be an integer.", field)
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("The %s field must be a number.", field)
	case reflect.String:
		return fmt.Sprintf("The %s field must be a string.", field)
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("The %s field must be an array.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
