package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

var ErrInvalidPublicKey = errors.New("invalid public key")

// SigningKeyPair is a freshly generated Ed25519 key pair.
type SigningKeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Seed returns the 32-byte private seed, the form handed to invitees.
func (k *SigningKeyPair) Seed() []byte {
	return k.Private.Seed()
}

// GenerateSigningKeyPair creates a new Ed25519 key pair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &SigningKeyPair{Public: pub, Private: priv}, nil
}

// IsSigningPublicKey reports whether b has the length of an Ed25519 public key.
func IsSigningPublicKey(b []byte) bool {
	return len(b) == ed25519.PublicKeySize
}

// ParseRSAPublicKey parses a DER encoded SubjectPublicKeyInfo holding an RSA key.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	return rsaPub, nil
}

// EncryptPKCS1v15 encrypts msg for the holder of pub.
func EncryptPKCS1v15(pub *rsa.PublicKey, msg []byte) ([]byte, error) {
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, msg)
	if err != nil {
		return nil, fmt.Errorf("rsa encrypt: %w", err)
	}
	return ct, nil
}
