package token

import (
	"crypto/ed25519"
	"errors"
)

// Verifier checks a detached signature over message.
type Verifier interface {
	Verify(publicKey, message, signature []byte) bool
}

// Signer produces a detached signature over message.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Ed25519Verifier verifies Ed25519 signatures. Keys of the wrong length
// never verify.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// Ed25519Signer signs with an Ed25519 private key.
type Ed25519Signer ed25519.PrivateKey

// NewEd25519SignerFromSeed builds a signer from a 32-byte seed.
func NewEd25519SignerFromSeed(seed []byte) (Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("invalid ed25519 seed length")
	}
	return Ed25519Signer(ed25519.NewKeyFromSeed(seed)), nil
}

func (s Ed25519Signer) Sign(message []byte) ([]byte, error) {
	if len(s) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key length")
	}
	return ed25519.Sign(ed25519.PrivateKey(s), message), nil
}
