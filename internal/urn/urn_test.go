package urn

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    URN
		wantErr bool
	}{
		{"tel:+250788123123", URN{"tel", "+250788123123"}, false},
		{"TWITTER:Bob", URN{"twitter", "Bob"}, false},
		{"  mailto:a@b.com ", URN{"mailto", "a@b.com"}, false},
		{"+250788123123", URN{}, true},
		{":path", URN{}, true},
		{"tel:", URN{}, true},
		{"", URN{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("Parse(%q) err = %v, want ErrParse", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      URN
		country string
		want    URN
	}{
		{"e164 kept", URN{"tel", "+250788123123"}, "", URN{"tel", "+250788123123"}},
		{"local with country", URN{"tel", "0788 123 123"}, "RW", URN{"tel", "+250788123123"}},
		{"lowercase country", URN{"tel", "0788123123"}, "rw", URN{"tel", "+250788123123"}},
		{"long number without plus", URN{"tel", "250788123123"}, "", URN{"tel", "+250788123123"}},
		{"short code", URN{"tel", "1234"}, "RW", URN{"tel", "1234"}},
		{"us number", URN{"tel", "+1 555-555-0100"}, "", URN{"tel", "+15555550100"}},
		{"twitter case folded", URN{"twitter", " BobJones "}, "", URN{"twitter", "bobjones"}},
		{"scheme lowercased", URN{"MAILTO", "A@B.com"}, "", URN{"mailto", "a@b.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in, tt.country); got != tt.want {
				t.Errorf("Normalize(%+v, %q) = %+v, want %+v", tt.in, tt.country, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		in   URN
		want bool
	}{
		{URN{"tel", "+250788123123"}, true},
		{URN{"tel", "0788123123"}, false},
		{URN{"tel", "+0788123123"}, false},
		{URN{"tel", "1234"}, false},
		{URN{"twitter", "bob"}, true},
		{URN{"twitter", ""}, false},
		{URN{"gopher", "bob"}, false},
		{URN{"ext", "  "}, false},
	}
	for _, tt := range tests {
		if got := Validate(tt.in); got != tt.want {
			t.Errorf("Validate(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseNormalized_SameIdentity(t *testing.T) {
	a, err := ParseNormalized("tel:0788123123", "RW")
	if err != nil {
		t.Fatalf("ParseNormalized: %v", err)
	}
	b, err := ParseNormalized("tel:+250 788 123 123", "")
	if err != nil {
		t.Fatalf("ParseNormalized: %v", err)
	}
	if a.String() != b.String() {
		t.Errorf("identities differ: %q != %q", a, b)
	}
}

func TestParseNormalized_Invalid(t *testing.T) {
	if _, err := ParseNormalized("tel:0788123123", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if _, err := ParseNormalized("bogus", ""); !errors.Is(err, ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParsePhone(t *testing.T) {
	got, err := ParsePhone("0788123123", "RW")
	if err != nil {
		t.Fatalf("ParsePhone: %v", err)
	}
	if got != "+250788123123" {
		t.Errorf("ParsePhone = %q, want +250788123123", got)
	}
	if _, err := ParsePhone("12", "RW"); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("err = %v, want ErrInvalidPhone", err)
	}
	if _, err := ParsePhone("not a number", ""); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("err = %v, want ErrInvalidPhone", err)
	}
}
