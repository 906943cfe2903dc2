package form

import (
	"testing"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

type signupForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
	Age      int    `form:"age" validate:"min=13,max=120"`
	Profile  profileSection
}

type profileSection struct {
	DisplayName string `form:"name" validate:"maxlen=20"`
	Internal    string `form:"-"`
}

func TestFormGetSet(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{})

	f.Set("email", "a@b.co")
	if got := f.GetString("email"); got != "a@b.co" {
		t.Errorf("email = %q, want %q", got, "a@b.co")
	}

	f.Set("profile.name", "Ada")
	if got := f.GetString("profile.name"); got != "Ada" {
		t.Errorf("profile.name = %q, want %q", got, "Ada")
	}

	if !f.FieldDirty("email") || !f.FieldDirty("profile.name") {
		t.Error("modified fields should be dirty")
	}
	if f.FieldDirty("password") {
		t.Error("unmodified field should not be dirty")
	}
}

func TestFormValuesAreReactive(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{})

	var seen []string
	rt.CreateEffect(func() ripple.Cleanup {
		seen = append(seen, f.Values().Email)
		return nil
	})

	f.Set("email", "x@y.zz")

	if len(seen) != 2 || seen[1] != "x@y.zz" {
		t.Fatalf("effect observations = %v, want [\"\" \"x@y.zz\"]", seen)
	}
}

func TestFormValidateTagRules(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{})
	f.Set("email", "not-an-email")
	f.Set("password", "short")
	f.Set("age", 7)

	if f.Validate() {
		t.Fatal("expected validation to fail")
	}

	for _, field := range []string{"email", "password", "age"} {
		if !f.HasError(field) {
			t.Errorf("expected error on %s, errors = %v", field, f.Errors())
		}
	}

	f.Set("email", "a@b.co")
	f.Set("password", "longenough")
	f.Set("age", 30)

	if !f.Validate() {
		t.Fatalf("expected valid form, errors = %v", f.Errors())
	}
	if !f.IsValid() {
		t.Error("IsValid should be true after passing validation")
	}
}

func TestFormValidateField(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{})

	if f.ValidateField("email") {
		t.Error("empty required field should fail")
	}
	if !f.IsTouched("email") {
		t.Error("validated field should be touched")
	}
	if f.IsTouched("password") {
		t.Error("unvalidated field should not be touched")
	}

	f.Set("email", "a@b.co")
	if !f.ValidateField("email") {
		t.Errorf("valid email should pass, errors = %v", f.FieldErrors("email"))
	}
	if f.HasError("email") {
		t.Error("passing validation should clear the field error")
	}
}

func TestFormReset(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{Email: "init@b.co"})

	f.Set("email", "changed@b.co")
	f.SetError("email", "manual")
	f.SetSubmitting(true)

	f.Reset()

	if got := f.GetString("email"); got != "init@b.co" {
		t.Errorf("email after Reset = %q, want initial", got)
	}
	if f.IsDirty() || !f.IsValid() || f.IsSubmitting() {
		t.Error("Reset should clear dirty, errors and submitting state")
	}
}

func TestFormEqualToField(t *testing.T) {
	type pw struct {
		Password string `form:"password"`
		Confirm  string `form:"confirm"`
	}
	rt := ripple.NewRuntime()
	f := New(rt, pw{})
	f.AddValidators("confirm", EqualTo("password", ""))

	f.Set("password", "hunter22")
	f.Set("confirm", "hunter2")
	if f.ValidateField("confirm") {
		t.Error("mismatched confirmation should fail")
	}

	f.Set("confirm", "hunter22")
	if !f.ValidateField("confirm") {
		t.Errorf("matching confirmation should pass, errors = %v", f.FieldErrors("confirm"))
	}
}

func TestFormSkipsDashFields(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{})

	f.Set("profile.internal", "x")
	if got := f.Get("profile.internal"); got != nil {
		t.Errorf("form-excluded field should not resolve, got %v", got)
	}
}

func TestFormSetValuesMarksAllDirty(t *testing.T) {
	rt := ripple.NewRuntime()
	f := New(rt, signupForm{})

	f.SetValues(signupForm{Email: "a@b.co", Password: "longenough", Age: 30})

	if !f.FieldDirty("email") || !f.FieldDirty("password") || !f.FieldDirty("age") {
		t.Error("SetValues should mark every field dirty")
	}
	if got := f.GetString("password"); got != "longenough" {
		t.Errorf("password = %q, want %q", got, "longenough")
	}
}
