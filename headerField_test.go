package http2

import "testing"

func TestHeaderFieldIsValidName(t *testing.T) {
	cases := []struct {
		key   string
		valid bool
	}{
		{":method", true},
		{":", false},
		{"content-type", true},
		{"Content-Type", false},
		{"x-custom_header", true},
		{"bad header", false},
		{"", false},
	}

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	for _, c := range cases {
		hf.SetKey(c.key)
		if got := hf.IsValidName(); got != c.valid {
			t.Fatalf("IsValidName(%q) = %v, want %v", c.key, got, c.valid)
		}
	}
}

func TestValidateFieldsRejectsMalformedName(t *testing.T) {
	bad := AcquireHeaderField()
	defer ReleaseHeaderField(bad)
	bad.Set("bad header", "value")

	err := validateFields([]*HeaderField{bad})
	if err == nil {
		t.Fatal("expected an error for a malformed header field name")
	}
	herr, ok := err.(Error)
	if !ok {
		t.Fatalf("expected http2.Error, got %T", err)
	}
	if herr.Code != ProtocolError {
		t.Fatalf("expected ProtocolError, got %s", herr.Code)
	}
}

func TestValidateFieldsAcceptsWellFormed(t *testing.T) {
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set(":path", "/index.html")

	if err := validateFields([]*HeaderField{hf}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
