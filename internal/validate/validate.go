// Package validate wraps go-playground/validator with per-field error
// messages keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field name to its validation messages.
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Merge copies every message from other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns e as an error, or nil if there are no messages.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// As extracts field errors from err, if it carries any.
func As(err error) (Errors, bool) {
	var fe Errors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	phoneRe    = regexp.MustCompile(`^\+?\d{10,15}$`)
	pincodeRe  = regexp.MustCompile(`^\d{6}$`)
)

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	regexps := map[string]*regexp.Regexp{
		"username": usernameRe,
		"phone":    phoneRe,
		"pincode":  pincodeRe,
	}
	for tag, re := range regexps {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("registering %s validation: %v", tag, err))
		}
	}
	return v
}

// Struct validates s using its `validate` tags.
// The returned Errors is empty when s is valid.
func Struct(s any) Errors {
	errs := Errors{}
	err := engine.Struct(s)
	if err == nil {
		return errs
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		errs.Add("non_field_errors", err.Error())
		return errs
	}
	for _, fe := range ves {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

// Phone reports whether s is 10 to 15 digits with an optional leading +.
func Phone(s string) bool {
	return phoneRe.MatchString(s)
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %q is not one of the available choices.", fmt.Sprint(fe.Value()))
	case "eqfield":
		return "The two fields didn't match."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "phone":
		return "Enter a valid phone number (10-15 digits, optional leading +)."
	case "pincode":
		return "Enter a valid 6-digit pincode."
	case "latitude":
		return "Enter a valid latitude."
	case "longitude":
		return "Enter a valid longitude."
	case "datetime":
		return fmt.Sprintf("Enter a valid value in the format %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation.", fe.Tag())
	}
}
