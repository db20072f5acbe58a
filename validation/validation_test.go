package validation

import (
	"errors"
	"testing"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	PositiveFloat("quantity", 0, v)
	NonNegativeFloat("vat_rate", -1, v)
	RangeFloat("vat_rate", 150, 0, 100, v)
	Email("email", "not-an-email", v)
	OneOf("kind", "gadget", []string{"product", "service"}, v)
	MaxLen("code", "abcdef", 3, v)
	RequiredID("client_id", 0, v)

	want := map[string]string{
		"name":      "required",
		"quantity":  "must_be_positive",
		"vat_rate":  "must_not_be_negative",
		"email":     "invalid_email",
		"kind":      "invalid_choice",
		"code":      "too_long",
		"client_id": "required",
	}
	for f, code := range want {
		if v[f] != code {
			t.Errorf("%s = %q, want %q", f, v[f], code)
		}
	}
	if len(v) != len(want) {
		t.Errorf("unexpected violations %v", v)
	}
}

func TestEmailAcceptsEmptyAndValid(t *testing.T) {
	v := Violations{}
	Email("email", "", v)
	Email("other", "billing@acme.sa", v)
	if !v.Empty() {
		t.Fatalf("unexpected violations %v", v)
	}
}

func TestErr(t *testing.T) {
	if (Violations{}).Err() != nil {
		t.Fatal("empty violations should not be an error")
	}
	v := Violations{}
	v.Merge("items[0].", map[string]string{"quantity": "must_be_positive"})
	err := v.Err()
	var ve *Error
	if !errors.As(err, &ve) || ve.Violations["items[0].quantity"] != "must_be_positive" {
		t.Fatalf("unexpected error %v", err)
	}
	if err.Error() != "validation failed: items[0].quantity" {
		t.Fatalf("message = %q", err.Error())
	}
}
