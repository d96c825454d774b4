package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", true
		}
		return *v, true
	}
	return "", false
}

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := asString(value); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// MaxLength builds a rule limiting the rune count of a string value.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

var nipWeights = [9]int{6, 5, 7, 2, 3, 4, 5, 6, 7}

// ValidNIP reports whether s is a ten-digit tax id with a correct check digit.
func ValidNIP(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i < 9 {
			sum += int(s[i]-'0') * nipWeights[i]
		}
	}
	check := sum % 11
	return check != 10 && check == int(s[9]-'0')
}

// NIP accepts a tax id with optional "PL" prefix, spaces and dashes.
func NIP(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if !ValidNIP(NormalizeNIP(str)) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid 10-digit NIP"}
	}
	return nil
}

// NormalizeNIP strips a country prefix and separators.
func NormalizeNIP(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "PL")
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

var officeCodeRegex = regexp.MustCompile(`^[0-9]{4}$`)

func OfficeCode(fieldName string, value interface{}) *ValidationError {
	str, _ := asString(value)
	if !officeCodeRegex.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a 4-digit tax office code"}
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email is optional: empty values pass.
func Email(fieldName string, value interface{}) *ValidationError {
	str, _ := asString(value)
	if str == "" {
		return nil
	}
	if !emailRegex.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid email address"}
	}
	return nil
}

func Purpose(fieldName string, value interface{}) *ValidationError {
	p, ok := value.(int)
	if !ok || (p != constants.PurposeFiling && p != constants.PurposeCorrection) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be 1 (filing) or 2 (correction)"}
	}
	return nil
}

// ISODate is optional: empty values pass.
func ISODate(fieldName string, value interface{}) *ValidationError {
	str, _ := asString(value)
	if str == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", str); err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a YYYY-MM-DD date"}
	}
	return nil
}

// Period is optional: empty values pass.
func Period(fieldName string, value interface{}) *ValidationError {
	str, _ := asString(value)
	if str == "" {
		return nil
	}
	if _, err := time.Parse("2006-01", str); err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a YYYY-MM period"}
	}
	return nil
}

// ValidateAndReturnError converts collected failures into an AppError.
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return NewAppError("VALIDATION_ERROR", validator.ErrorMessage(), ErrValidation)
	}
	return nil
}

// ValidateJobMeta checks submission metadata before a job is created.
func ValidateJobMeta(meta entity.JobMeta) error {
	v := NewValidator().
		Field("company_name", meta.CompanyName, Required, MaxLength(240)).
		Field("company_nip", meta.CompanyNIP, Required, NIP).
		Field("office_code", meta.OfficeCode, OfficeCode).
		Field("purpose", meta.Purpose, Purpose).
		Field("period", meta.Period, Period).
		Field("birth_date", meta.BirthDate, ISODate).
		Field("email", meta.Email, Email)
	return ValidateAndReturnError(v)
}
