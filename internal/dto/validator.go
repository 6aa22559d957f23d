package dto

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// NewValidator returns the validator shared by handlers and services. Field names in
// violations use the JSON name and the subject tag checks the fixed category list.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	_ = validate.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, subject := range models.Subjects {
			if subject == value {
				return true
			}
		}
		return false
	})

	return validate
}
