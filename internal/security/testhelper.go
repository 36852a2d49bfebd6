package security

import "time"

// Issuer and audience of the tokens minted by NewTestKeys.
const (
	TestIssuer   = "test-issuer"
	TestAudience = "test-audience"
)

// NewTestKeys returns an issuer and matching verifier over a freshly generated ES256 key. Tokens live for
// 15 minutes. For tests only.
func NewTestKeys() (*TokenIssuer, *TokenVerifier, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	issuer, err := NewTokenIssuer(key, TestIssuer, TestAudience, 15*time.Minute)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := NewTokenVerifier(key.Public(), TestIssuer, TestAudience)
	if err != nil {
		return nil, nil, err
	}
	return issuer, verifier, nil
}
