package utils

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// PasswordComplex requires at least 8 characters with a letter and a digit.
func PasswordComplex(password string) bool {
	if len(password) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// PhoneValid accepts an optional leading '+' and 7 to 15 digits; spaces and
// dashes are ignored.
func PhoneValid(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	return phonePattern.MatchString(cleaned)
}

// RegisterValidators installs the "password" and "phone" tags on gin's validator.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordComplex(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return PhoneValid(fl.Field().String())
	})
}

// FieldErrors flattens validator errors into json-field -> failed tag.
// It returns nil when err is not a validation error.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[toSnake(fe.Field())] = fe.Tag()
	}
	return out
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
