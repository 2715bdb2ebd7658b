// Package validation holds small rule helpers used by request DTOs and models.
package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	EmailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	URLPattern   = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&/=]*)$`)
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects failed rules in the order they were checked.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, ", ")
}

// Fields returns the names of the failed fields.
func (fe FieldErrors) Fields() []string {
	out := make([]string, len(fe))
	for i, e := range fe {
		out[i] = e.Field
	}
	return out
}

// IsFieldErrors reports whether err wraps FieldErrors.
func IsFieldErrors(err error) bool {
	var fe FieldErrors
	return errors.As(err, &fe)
}

// Validator accumulates rule failures.
type Validator struct {
	errs FieldErrors
}

// Check records msg against field when ok is false.
func (v *Validator) Check(ok bool, field, msg string) {
	if !ok {
		v.errs = append(v.errs, FieldError{Field: field, Message: msg})
	}
}

func (v *Validator) Required(field, value, msg string) {
	v.Check(strings.TrimSpace(value) != "", field, msg)
}

func (v *Validator) MaxLen(field, value string, n int, msg string) {
	v.Check(len([]rune(value)) <= n, field, msg)
}

func (v *Validator) MinLen(field, value string, n int, msg string) {
	v.Check(len([]rune(value)) >= n, field, msg)
}

// Match skips empty values; pair with Required when the field is mandatory.
func (v *Validator) Match(field, value string, re *regexp.Regexp, msg string) {
	v.Check(value == "" || re.MatchString(value), field, msg)
}

func (v *Validator) OneOf(field, value string, allowed []string, msg string) {
	v.Check(value == "" || In(value, allowed), field, msg)
}

// Err returns the collected failures or nil.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

// In reports whether value is one of allowed.
func In(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
