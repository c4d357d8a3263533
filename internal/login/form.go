package login

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrFieldRequired is the message key reported for an empty required field.
const ErrFieldRequired = "login.fieldRequired"

// Form is the credential pair typed into the login page.
type Form struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// FieldErrors maps a form field name to the message key of the rule it broke.
type FieldErrors map[string]string

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks that both fields are non-empty. Values are not trimmed.
func Validate(form Form) FieldErrors {
	errs := FieldErrors{}
	err := formValidator().Struct(form)
	if err == nil {
		return errs
	}
	var vErr validator.ValidationErrors
	if !errors.As(err, &vErr) {
		errs["form"] = ErrFieldRequired
		return errs
	}
	for _, fe := range vErr {
		errs[fe.Field()] = ErrFieldRequired
	}
	return errs
}
