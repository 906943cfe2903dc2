// Package form provides reactive, type-safe form state with field-level
// validation. A Form wraps a struct value; fields are addressed by their
// `form` tag (dot notation for nesting) and validated by rules declared
// in `validate` tags or attached programmatically.
//
//	type Signup struct {
//	    Email    string `form:"email" validate:"required,email"`
//	    Password string `form:"password" validate:"required,min=8"`
//	}
//
//	f := form.New(rt, Signup{})
//	f.Set("email", "a@b.co")
//	if f.Validate() {
//	    submit(f.Values())
//	}
//
// Values, errors, touched and dirty state are reactive: effects that read
// them re-run when the form changes.
package form
