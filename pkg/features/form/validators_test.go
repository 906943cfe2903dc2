package form

import (
	"errors"
	"testing"
)

func TestRequired(t *testing.T) {
	v := Required("")
	if v.Validate("") == nil {
		t.Error("empty string should fail")
	}
	if v.Validate(nil) == nil {
		t.Error("nil should fail")
	}
	if v.Validate([]string{}) == nil {
		t.Error("empty slice should fail")
	}
	if err := v.Validate("x"); err != nil {
		t.Errorf("non-empty string should pass, got %v", err)
	}
	if err := v.Validate(0); err != nil {
		t.Errorf("zero int is present, should pass, got %v", err)
	}
}

func TestLengthValidators(t *testing.T) {
	if MinLength(3, "").Validate("ab") == nil {
		t.Error("short string should fail MinLength")
	}
	if err := MinLength(3, "").Validate(""); err != nil {
		t.Errorf("empty string passes MinLength (Required's job), got %v", err)
	}
	if err := MinLength(2, "").Validate("héé"); err != nil {
		t.Errorf("rune count should be used, got %v", err)
	}
	if MaxLength(2, "").Validate("abc") == nil {
		t.Error("long string should fail MaxLength")
	}
}

func TestEmail(t *testing.T) {
	v := Email("")
	for _, ok := range []string{"a@b.co", "first.last+tag@sub.example.org"} {
		if err := v.Validate(ok); err != nil {
			t.Errorf("%q should pass, got %v", ok, err)
		}
	}
	for _, bad := range []string{"plain", "a@b", "@example.com"} {
		if v.Validate(bad) == nil {
			t.Errorf("%q should fail", bad)
		}
	}
}

func TestNumericBounds(t *testing.T) {
	if Min(5, "").Validate(4) == nil {
		t.Error("4 should fail Min(5)")
	}
	if err := Min(5, "").Validate(5); err != nil {
		t.Errorf("5 should pass Min(5), got %v", err)
	}
	if Max(10, "").Validate(11) == nil {
		t.Error("11 should fail Max(10)")
	}
	if Between(1, 10, "").Validate(0) == nil {
		t.Error("0 should fail Between(1,10)")
	}
	if err := Between(1, 10, "").Validate(10); err != nil {
		t.Errorf("10 should pass Between(1,10), got %v", err)
	}
	if err := Min(5, "").Validate("7"); err != nil {
		t.Errorf("numeric strings are coerced, got %v", err)
	}
}

func TestPattern(t *testing.T) {
	v := Pattern(`^[a-z]+$`, "lowercase only")
	if err := v.Validate("abc"); err != nil {
		t.Errorf("match should pass, got %v", err)
	}
	err := v.Validate("Abc")
	if err == nil {
		t.Fatal("mismatch should fail")
	}
	if err.Error() != "lowercase only" {
		t.Errorf("custom message lost: %q", err.Error())
	}
}

func TestCustom(t *testing.T) {
	sentinel := errors.New("nope")
	v := Custom(func(value any) error {
		if value == "bad" {
			return sentinel
		}
		return nil
	})
	if err := v.Validate("good"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if !errors.Is(v.Validate("bad"), sentinel) {
		t.Error("custom error should pass through")
	}
}

func TestParseValidateTag(t *testing.T) {
	vs := parseValidateTag("required, email, minlen=2, pattern=^a")
	if len(vs) != 4 {
		t.Fatalf("parsed %d validators, want 4", len(vs))
	}

	vs = parseValidateTag("min=oops,unknown")
	if len(vs) != 0 {
		t.Errorf("unparseable rules should be skipped, got %d validators", len(vs))
	}
}

func TestBoundRuleDispatch(t *testing.T) {
	vs := parseValidateTag("min=3")
	if len(vs) != 1 {
		t.Fatal("expected one validator")
	}
	if vs[0].Validate("ab") == nil {
		t.Error("min on a string should check length")
	}
	if vs[0].Validate(2) == nil {
		t.Error("min on a number should check value")
	}
	if err := vs[0].Validate(3); err != nil {
		t.Errorf("3 should pass min=3, got %v", err)
	}
}
