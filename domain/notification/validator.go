package notification

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultPhonePattern accepts Nigerian mobile numbers in local or
// international form.
const DefaultPhonePattern = `^(\+234|0)[789][01]\d{8}$`

// Validator checks notification payloads.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator whose "phone" rule uses pattern. An empty
// pattern selects DefaultPhonePattern.
func NewValidator(pattern string) (*Validator, error) {
	if pattern == "" {
		pattern = DefaultPhonePattern
	}
	phone, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile phone pattern: %w", err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phone.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register phone rule: %w", err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Validator{validate: v}, nil
}

// Validate checks a payload struct. Failures wrap ErrInvalidPayload and
// name every offending field.
func (v *Validator) Validate(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "phone":
		return field + " is not a valid phone number"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
