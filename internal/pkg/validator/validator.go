package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("account_role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "customer", "business", "creator", "admin":
			return true
		}
		return false
	})

	// weekday_list accepts a slice of ints in 0..6 without duplicates
	validate.RegisterValidation("weekday_list", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		seen := make(map[int64]bool, field.Len())
		for i := 0; i < field.Len(); i++ {
			d := field.Index(i).Int()
			if d < 0 || d > 6 || seen[d] {
				return false
			}
			seen[d] = true
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"_": err.Error()}
	}

	fieldErrors := make(map[string]string)
	for _, fe := range validationErrors {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fieldErrors[field] = "This field is required"
		case "min":
			fieldErrors[field] = "Value is too short (min: " + fe.Param() + ")"
		case "max":
			fieldErrors[field] = "Value is too long (max: " + fe.Param() + ")"
		case "gt":
			fieldErrors[field] = "Value must be greater than " + fe.Param()
		case "gte":
			fieldErrors[field] = "Value must be at least " + fe.Param()
		case "lte":
			fieldErrors[field] = "Value must be at most " + fe.Param()
		case "account_role":
			fieldErrors[field] = "Invalid role. Must be: customer, business, creator, or admin"
		case "weekday_list":
			fieldErrors[field] = "Days must be unique values from 0 (Sunday) to 6 (Saturday)"
		default:
			fieldErrors[field] = "Invalid value"
		}
	}

	return fieldErrors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
