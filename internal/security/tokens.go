// Package security verifies the bearer tokens that carry the caller's user and org.
package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token is malformed, expired or signed for someone else.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the access token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
}

// TokenVerifier validates access tokens issued by the auth service.
type TokenVerifier struct {
	publicKey crypto.PublicKey
	parser    *jwt.Parser
}

// NewTokenVerifier returns a verifier for tokens signed by the private half of pub, with the given issuer
// and audience.
func NewTokenVerifier(pub crypto.PublicKey, issuer, audience string) (*TokenVerifier, error) {
	method, err := SigningMethod(pub)
	if err != nil {
		return nil, err
	}
	return &TokenVerifier{
		publicKey: pub,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify checks signature, expiry, issuer and audience and returns the user and org the token was issued for.
func (v *TokenVerifier) Verify(token string) (userID, orgID string, err error) {
	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil || claims.Subject == "" || claims.OrgID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.OrgID, nil
}

// TokenIssuer signs access tokens. The API itself only verifies; the issuer backs local tooling such as seed.
type TokenIssuer struct {
	privateKey crypto.Signer
	method     jwt.SigningMethod
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewTokenIssuer returns an issuer signing with key (RS256 or ES256).
func NewTokenIssuer(key crypto.Signer, issuer, audience string, ttl time.Duration) (*TokenIssuer, error) {
	method, err := SigningMethod(key.Public())
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{privateKey: key, method: method, issuer: issuer, audience: audience, ttl: ttl}, nil
}

// Issue returns a signed access token for userID in orgID and its expiry.
func (i *TokenIssuer) Issue(userID, orgID string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		OrgID: orgID,
	}
	token, err := jwt.NewWithClaims(i.method, claims).SignedString(i.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}
