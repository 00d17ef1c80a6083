package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// e164Pattern matches international phone numbers with an optional leading plus.
var e164Pattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return e164Pattern.MatchString(fl.Field().String())
	})

	_ = validate.RegisterValidation("channel_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "sms", "whatsapp_message", "whatsapp_call", "phone_call":
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("user_response", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "marked_safe", "confirmed_fraud", "ignored", "blocked_number":
			return true
		}
		return false
	})
}

// ValidateStruct validates a struct using the registered validators
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(errs)
		}
		return err
	}
	return nil
}
