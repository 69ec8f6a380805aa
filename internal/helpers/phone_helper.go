package helpers

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Togolese mobile numbers: +228 followed by eight digits.
var togoPhonePattern = regexp.MustCompile(`^\+228\d{8}$`)

// NormalizePhone strips the spaces users type between digit groups
// ("+228 90 90 90 90" -> "+22890909090").
func NormalizePhone(phone string) string {
	return strings.ReplaceAll(phone, " ", "")
}

// IsTogolesePhone reports whether the (normalized) number is a valid +228
// mobile number.
func IsTogolesePhone(phone string) bool {
	return togoPhonePattern.MatchString(phone)
}

// RegisterValidators installs the custom binding rules on gin's validator
// engine. "tg_phone" accepts an empty string so it composes with omitempty
// handling done in handlers.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("tg_phone", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return IsTogolesePhone(NormalizePhone(value))
	})
}
