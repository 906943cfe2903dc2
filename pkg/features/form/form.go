package form

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// Form is a reactive form handler bound to a struct type. Field access
// uses the `form` struct tag (falling back to the lowercased field name)
// with dot notation for nested structs.
type Form[T any] struct {
	rt      *ripple.Runtime
	initial T

	values     *ripple.Ref[T]
	errors     *ripple.Ref[map[string][]string]
	touched    *ripple.Ref[map[string]bool]
	dirty      *ripple.Ref[map[string]bool]
	submitting *ripple.Ref[bool]

	validators map[string][]Validator
	fields     []string
	mu         sync.RWMutex
}

// New creates a Form with the given initial value. Validators declared in
// `validate` tags are registered automatically. A nil runtime uses the
// default runtime.
func New[T any](rt *ripple.Runtime, initial T) *Form[T] {
	if rt == nil {
		rt = ripple.DefaultRuntime()
	}
	f := &Form[T]{
		rt:         rt,
		initial:    initial,
		values:     ripple.NewRef(rt, initial),
		errors:     ripple.NewRef(rt, map[string][]string{}),
		touched:    ripple.NewRef(rt, map[string]bool{}),
		dirty:      ripple.NewRef(rt, map[string]bool{}),
		submitting: ripple.NewRef(rt, false),
		validators: make(map[string][]Validator),
	}
	f.registerFields(reflect.TypeOf(initial), "")
	return f
}

// registerFields walks the struct type collecting field paths and the
// validators declared in validate tags.
func (f *Form[T]) registerFields(t reflect.Type, prefix string) {
	if t == nil {
		return
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("form")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if name == "-" {
			continue
		}

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		f.fields = append(f.fields, path)

		if tag := field.Tag.Get("validate"); tag != "" {
			f.validators[path] = parseValidateTag(tag)
		}

		if field.Type.Kind() == reflect.Struct {
			f.registerFields(field.Type, path)
		}
	}
}

// Values returns the current form values, tracked reactively.
func (f *Form[T]) Values() T {
	return f.values.Get()
}

// Get returns a single field's value. Nested fields use dot notation.
func (f *Form[T]) Get(field string) any {
	values := f.values.Get()
	return getFieldValue(reflect.ValueOf(values), field)
}

// GetString returns a field value as a string.
func (f *Form[T]) GetString(field string) string {
	v := f.Get(field)
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Set updates a single field and marks it dirty.
func (f *Form[T]) Set(field string, value any) {
	f.rt.Batch(func() {
		f.values.Update(func(current T) T {
			setFieldValue(reflect.ValueOf(&current).Elem(), field, value)
			return current
		})
		f.dirty.Update(func(m map[string]bool) map[string]bool {
			next := cloneBoolMap(m, 1)
			next[field] = true
			return next
		})
	})
}

// SetValues replaces the whole value and marks every field dirty.
func (f *Form[T]) SetValues(values T) {
	f.rt.Batch(func() {
		f.values.Set(values)
		f.dirty.Update(func(map[string]bool) map[string]bool {
			next := make(map[string]bool, len(f.fields))
			for _, field := range f.fields {
				next[field] = true
			}
			return next
		})
	})
}

// Reset restores the initial values and clears errors, touched and dirty
// state.
func (f *Form[T]) Reset() {
	f.rt.Batch(func() {
		f.values.Set(f.initial)
		f.errors.Set(map[string][]string{})
		f.touched.Set(map[string]bool{})
		f.dirty.Set(map[string]bool{})
		f.submitting.Set(false)
	})
}

// Validate runs every registered validator and stores the failures.
// It returns true when the form is valid.
func (f *Form[T]) Validate() bool {
	f.mu.RLock()
	rules := make(map[string][]Validator, len(f.validators))
	for field, vs := range f.validators {
		rules[field] = vs
	}
	f.mu.RUnlock()

	all := make(map[string][]string)
	for field, vs := range rules {
		value := f.Peek(field)
		for _, v := range vs {
			if err := v.Validate(value); err != nil {
				all[field] = append(all[field], err.Error())
			}
		}
	}

	f.errors.Set(all)
	return len(all) == 0
}

// ValidateField validates one field, marks it touched, and returns true
// when it passes.
func (f *Form[T]) ValidateField(field string) bool {
	f.mu.RLock()
	vs := f.validators[field]
	f.mu.RUnlock()

	var failures []string
	value := f.Peek(field)
	for _, v := range vs {
		if err := v.Validate(value); err != nil {
			failures = append(failures, err.Error())
		}
	}

	f.rt.Batch(func() {
		f.errors.Update(func(m map[string][]string) map[string][]string {
			next := make(map[string][]string, len(m)+1)
			for k, v := range m {
				next[k] = v
			}
			if len(failures) > 0 {
				next[field] = failures
			} else {
				delete(next, field)
			}
			return next
		})
		f.touched.Update(func(m map[string]bool) map[string]bool {
			next := cloneBoolMap(m, 1)
			next[field] = true
			return next
		})
	})

	return len(failures) == 0
}

// Peek reads a field without creating a dependency.
func (f *Form[T]) Peek(field string) any {
	return getFieldValue(reflect.ValueOf(f.values.Peek()), field)
}

// Errors returns all validation errors keyed by field, tracked reactively.
func (f *Form[T]) Errors() map[string][]string {
	return f.errors.Get()
}

// FieldErrors returns the validation errors for one field.
func (f *Form[T]) FieldErrors(field string) []string {
	return f.errors.Get()[field]
}

// HasError reports whether the field currently has validation errors.
func (f *Form[T]) HasError(field string) bool {
	return len(f.errors.Get()[field]) > 0
}

// SetError appends a manual error message for a field.
func (f *Form[T]) SetError(field, msg string) {
	f.errors.Update(func(m map[string][]string) map[string][]string {
		next := make(map[string][]string, len(m)+1)
		for k, v := range m {
			next[k] = v
		}
		next[field] = append(append([]string(nil), next[field]...), msg)
		return next
	})
}

// ClearErrors removes all validation errors.
func (f *Form[T]) ClearErrors() {
	f.errors.Set(map[string][]string{})
}

// IsValid reports whether the last validation pass found no errors.
func (f *Form[T]) IsValid() bool {
	return len(f.errors.Get()) == 0
}

// IsDirty reports whether any field has been modified.
func (f *Form[T]) IsDirty() bool {
	return len(f.dirty.Get()) > 0
}

// FieldDirty reports whether the field has been modified.
func (f *Form[T]) FieldDirty(field string) bool {
	return f.dirty.Get()[field]
}

// IsTouched reports whether the field has been validated at least once.
func (f *Form[T]) IsTouched(field string) bool {
	return f.touched.Get()[field]
}

// IsSubmitting reports the submitting flag, tracked reactively.
func (f *Form[T]) IsSubmitting() bool {
	return f.submitting.Get()
}

// SetSubmitting sets the submitting flag.
func (f *Form[T]) SetSubmitting(submitting bool) {
	f.submitting.Set(submitting)
}

// AddValidators registers validators for a field programmatically.
// Comparison validators that need form context are wired up here.
func (f *Form[T]) AddValidators(field string, validators ...Validator) {
	for _, v := range validators {
		if cv, ok := v.(interface {
			SetForm(interface{ Get(string) any })
		}); ok {
			cv.SetForm(f)
		}
	}
	f.mu.Lock()
	f.validators[field] = append(f.validators[field], validators...)
	f.mu.Unlock()
}

func cloneBoolMap(m map[string]bool, extra int) map[string]bool {
	next := make(map[string]bool, len(m)+extra)
	for k, v := range m {
		next[k] = v
	}
	return next
}

// getFieldValue resolves a dot-notation path against a struct value.
func getFieldValue(v reflect.Value, path string) any {
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	head, rest, nested := strings.Cut(path, ".")
	field := findField(v, head)
	if !field.IsValid() {
		return nil
	}
	if nested {
		return getFieldValue(field, rest)
	}
	if field.CanInterface() {
		return field.Interface()
	}
	return nil
}

// setFieldValue writes a dot-notation path on an addressable struct value.
func setFieldValue(v reflect.Value, path string, value any) {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	head, rest, nested := strings.Cut(path, ".")
	field := findField(v, head)
	if !field.IsValid() || !field.CanSet() {
		return
	}
	if nested {
		setFieldValue(field, rest, value)
		return
	}

	nv := reflect.ValueOf(value)
	if nv.IsValid() && nv.Type().ConvertibleTo(field.Type()) {
		field.Set(nv.Convert(field.Type()))
	}
}

// findField matches a struct field by form tag first, then by name.
func findField(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("form")
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = strings.ToLower(field.Name)
		}
		if tag == name || strings.EqualFold(field.Name, name) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}
