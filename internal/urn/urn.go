// Package urn parses, normalizes and validates contact addresses of the form scheme:path.
package urn

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Recognized addressing schemes.
const (
	TelScheme      = "tel"
	TwitterScheme  = "twitter"
	EmailScheme    = "mailto"
	ExternalScheme = "ext"
	FacebookScheme = "facebook"
	TelegramScheme = "telegram"
)

var schemes = map[string]bool{
	TelScheme:      true,
	TwitterScheme:  true,
	EmailScheme:    true,
	ExternalScheme: true,
	FacebookScheme: true,
	TelegramScheme: true,
}

var (
	// ErrParse is returned when a raw string is not of the form scheme:path.
	ErrParse = errors.New("urn: malformed")
	// ErrInvalid is returned when a parsed URN fails normalization or validation.
	ErrInvalid = errors.New("urn: invalid")
	// ErrInvalidPhone is returned when a phone number is not a possible number.
	ErrInvalidPhone = errors.New("urn: invalid phone number")
)

var (
	urnPattern   = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9]*):(.+)$`)
	telPattern   = regexp.MustCompile(`^\+[1-9][0-9]{4,14}$`)
	nonNumberish = regexp.MustCompile(`[^0-9a-z+]`)
	nonAlnum     = regexp.MustCompile(`[^0-9a-z]`)
)

// URN is a (scheme, path) address pair.
type URN struct {
	Scheme string
	Path   string
}

// NewTel returns a tel URN for path, without normalizing it.
func NewTel(path string) URN {
	return URN{Scheme: TelScheme, Path: path}
}

// String returns the canonical scheme:path form. It is also the identity used for uniqueness.
func (u URN) String() string {
	return u.Scheme + ":" + u.Path
}

// IsTel reports whether u uses the telephone scheme.
func (u URN) IsTel() bool {
	return u.Scheme == TelScheme
}

// IsScheme reports whether scheme is a recognized addressing scheme.
func IsScheme(scheme string) bool {
	return schemes[scheme]
}

// Parse splits raw into scheme and path. The scheme is lowercased; the path is returned as given.
func Parse(raw string) (URN, error) {
	m := urnPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return URN{}, ErrParse
	}
	return URN{Scheme: strings.ToLower(m[1]), Path: m[2]}, nil
}

// Normalize returns the canonical form of u. Telephone paths are converted to E164 when they parse as a
// possible number, using country as the region for numbers without an explicit country code. Other schemes
// are trimmed and lowercased.
func Normalize(u URN, country string) URN {
	scheme := strings.ToLower(strings.TrimSpace(u.Scheme))
	path := strings.TrimSpace(u.Path)
	if scheme == TelScheme {
		path, _ = NormalizeNumber(path, country)
		return URN{Scheme: scheme, Path: path}
	}
	return URN{Scheme: scheme, Path: strings.ToLower(path)}
}

// NormalizeNumber normalizes a phone number. It returns the E164 form and true when the number is possible for
// country, otherwise the number stripped to lowercase alphanumerics and false (short codes and local numbers).
func NormalizeNumber(number, country string) (string, bool) {
	number = strings.ToLower(strings.TrimSpace(number))

	// spreadsheets sometimes render long numbers in exponent notation
	if strings.HasSuffix(number, "e+11") || strings.HasSuffix(number, "e+12") {
		number = strings.Replace(number[:len(number)-4], ".", "", 1)
	}

	number = nonNumberish.ReplaceAllString(number, "")
	if len(number) >= 11 && !strings.HasPrefix(number, "+") {
		number = "+" + number
	}

	if parsed, err := phonenumbers.Parse(number, strings.ToUpper(country)); err == nil {
		if phonenumbers.IsPossibleNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164), true
		}
	}
	return nonAlnum.ReplaceAllString(number, ""), false
}

// Validate reports whether u has a recognized scheme and a well-formed path. Telephone paths must be in
// international E164 form.
func Validate(u URN) bool {
	if !IsScheme(u.Scheme) || u.Path == "" {
		return false
	}
	if u.Scheme == TelScheme {
		return telPattern.MatchString(u.Path)
	}
	return strings.TrimSpace(u.Path) != ""
}

// ParseNormalized parses raw, normalizes it with country and validates the result.
func ParseNormalized(raw, country string) (URN, error) {
	u, err := Parse(raw)
	if err != nil {
		return URN{}, err
	}
	return Prepare(u, country)
}

// Prepare normalizes u with country and validates the result.
func Prepare(u URN, country string) (URN, error) {
	n := Normalize(u, country)
	if !Validate(n) {
		return URN{}, ErrInvalid
	}
	return n, nil
}

// ParsePhone parses a legacy phone field for country and returns it in E164 form.
func ParsePhone(phone, country string) (string, error) {
	parsed, err := phonenumbers.Parse(strings.TrimSpace(phone), strings.ToUpper(country))
	if err != nil || !phonenumbers.IsPossibleNumber(parsed) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
