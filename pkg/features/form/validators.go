package form

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Validator checks a single field value.
type Validator interface {
	// Validate returns nil when the value is valid.
	Validate(value any) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(value any) error

func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidationError is a validation failure with a user-facing message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Required validates that the value is non-empty.
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength validates that a string has at least n characters.
// Empty values pass; combine with Required to reject them.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if len([]rune(s)) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		if len([]rune(toString(value))) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Pattern validates that a string matches the regular expression.
func Pattern(pattern, msg string) Validator {
	re := regexp.MustCompile(pattern)
	if msg == "" {
		msg = "Invalid format"
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !re.MatchString(s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email validates that the value is a plausible email address.
func Email(msg string) Validator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !emailPattern.MatchString(s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Min validates that a numeric value is >= n.
func Min(n float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %v", n)
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return nil
		}
		if toFloat64(value) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Max validates that a numeric value is <= n.
func Max(n float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %v", n)
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return nil
		}
		if toFloat64(value) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Between validates that a numeric value lies in [min, max].
func Between(min, max float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be between %v and %v", min, max)
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return nil
		}
		v := toFloat64(value)
		if v < min || v > max {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Custom wraps an arbitrary validation function.
func Custom(fn func(value any) error) Validator {
	return ValidatorFunc(fn)
}

// EqualToField validates that the value matches another field, such as a
// password confirmation. Register it with AddValidators so it receives
// form context.
type EqualToField struct {
	Field   string
	Message string
	form    interface{ Get(string) any }
}

// EqualTo returns a comparison validator against the named field.
func EqualTo(field, msg string) *EqualToField {
	if msg == "" {
		msg = fmt.Sprintf("Must match %s", field)
	}
	return &EqualToField{Field: field, Message: msg}
}

func (e *EqualToField) Validate(value any) error {
	if e.form == nil {
		return nil
	}
	if !reflect.DeepEqual(value, e.form.Get(e.Field)) {
		return ValidationError{Message: e.Message}
	}
	return nil
}

// SetForm supplies the form context for the comparison.
func (e *EqualToField) SetForm(form interface{ Get(string) any }) {
	e.form = form
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toFloat64(value any) float64 {
	switch n := value.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

// parseValidateTag turns a comma-separated validate tag into validators.
// Recognized rules: required, email, min=N, max=N, minlen=N, maxlen=N,
// pattern=RE. The min/max rules apply to string length when the value is
// a string and to the numeric value otherwise.
func parseValidateTag(tag string) []Validator {
	var out []Validator
	for _, rule := range strings.Split(tag, ",") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		name, arg, _ := strings.Cut(rule, "=")
		switch name {
		case "required":
			out = append(out, Required(""))
		case "email":
			out = append(out, Email(""))
		case "min":
			n, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				continue
			}
			out = append(out, boundRule(n, true))
		case "max":
			n, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				continue
			}
			out = append(out, boundRule(n, false))
		case "minlen":
			if n, err := strconv.Atoi(arg); err == nil {
				out = append(out, MinLength(n, ""))
			}
		case "maxlen":
			if n, err := strconv.Atoi(arg); err == nil {
				out = append(out, MaxLength(n, ""))
			}
		case "pattern":
			out = append(out, Pattern(arg, ""))
		}
	}
	return out
}

// boundRule applies min/max by string length or numeric value depending
// on the runtime type.
func boundRule(n float64, lower bool) Validator {
	return ValidatorFunc(func(value any) error {
		if s, ok := value.(string); ok {
			if lower {
				return MinLength(int(n), "").Validate(s)
			}
			return MaxLength(int(n), "").Validate(s)
		}
		if lower {
			return Min(n, "").Validate(value)
		}
		return Max(n, "").Validate(value)
	})
}
