package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

const (
	pemPrivatePKCS8 = "PRIVATE KEY"
	pemPrivatePKCS1 = "RSA PRIVATE KEY"
	pemPrivateEC    = "EC PRIVATE KEY"
	pemPublicPKIX   = "PUBLIC KEY"
	pemPublicPKCS1  = "RSA PUBLIC KEY"
)

// LoadPEM returns s as PEM bytes when it is inline PEM, otherwise the content of the file at path s.
// Env files often carry inline PEM with literal "\n" sequences; they are expanded.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, ErrInvalidKey
	case strings.HasPrefix(s, "-----BEGIN"):
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	default:
		return os.ReadFile(s)
	}
}

func readBlock(s string) (*pem.Block, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		return block, nil
	}
	return nil, ErrInvalidKey
}

// ParsePrivateKey parses an RSA or ECDSA private key in PKCS#1, SEC 1 or PKCS#8 form. s may be inline PEM or
// a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := readBlock(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case pemPrivatePKCS1:
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemPrivateEC:
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case pemPrivatePKCS8:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidKey
	}
	if _, err := SigningMethod(signer.Public()); err != nil {
		return nil, err
	}
	return signer, nil
}

// ParsePublicKey parses an RSA or ECDSA public key. s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := readBlock(s)
	if err != nil {
		return nil, err
	}
	var pub crypto.PublicKey
	switch block.Type {
	case pemPublicPKCS1:
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case pemPublicPKIX:
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	if _, err := SigningMethod(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// SigningMethod returns RS256 for RSA keys and ES256 for ECDSA keys.
func SigningMethod(pub crypto.PublicKey) (jwt.SigningMethod, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		return jwt.SigningMethodES256, nil
	}
	return nil, ErrInvalidKey
}

// GenerateKey returns a new ECDSA P-256 signing key for ES256 tokens.
func GenerateKey() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// EncodePrivateKey returns key as PKCS#8 PEM.
func EncodePrivateKey(key crypto.Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPrivatePKCS8, Bytes: der})), nil
}

// EncodePublicKey returns pub as PKIX PEM, the form ParsePublicKey and JWT_PUBLIC_KEY expect.
func EncodePublicKey(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPublicPKIX, Bytes: der})), nil
}
