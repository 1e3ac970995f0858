// Package token implements the signed capability tokens presented by clients
// to prove control of a budget key.
//
// On the wire a token is
//
//	base64url( json(claims) "|" hex(signature) )
//
// where the signature covers exactly the JSON bytes. The claims never carry
// the verification key: callers look the public key up by the claimed key id
// and pass it to Verify, so deleting the stored key revokes every outstanding
// token for it.
package token

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
)

// MaxEncodedLength bounds the size of a token string accepted by Decode.
const MaxEncodedLength = 4096

const separator = '|'

// Claims is implemented by every token payload.
type Claims interface {
	ExpiresAt() time.Time
}

// Token is a decoded, not yet verified, capability token.
type Token[C Claims] struct {
	Claims    C
	raw       []byte
	signature []byte
}

// Decode parses a transport string. Any structural problem yields
// common.ErrMalformed.
func Decode[C Claims](s string) (*Token[C], error) {
	if s == "" || len(s) > MaxEncodedLength {
		return nil, common.ErrMalformed
	}

	decoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return nil, common.ErrMalformed
		}
	}

	i := bytes.LastIndexByte(decoded, separator)
	if i <= 0 || i == len(decoded)-1 {
		return nil, common.ErrMalformed
	}
	raw, sigHex := decoded[:i], decoded[i+1:]

	sig := make([]byte, hex.DecodedLen(len(sigHex)))
	if _, err := hex.Decode(sig, sigHex); err != nil {
		return nil, common.ErrMalformed
	}

	var claims C
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&claims); err != nil {
		return nil, common.ErrMalformed
	}
	if dec.More() {
		return nil, common.ErrMalformed
	}

	return &Token[C]{Claims: claims, raw: raw, signature: sig}, nil
}

// Verify checks expiry against now, then the signature against publicKey.
// It returns common.ErrTokenExpired or common.ErrBadSignature on failure.
func (t *Token[C]) Verify(v Verifier, publicKey []byte, now time.Time) (C, error) {
	var zero C
	if now.After(t.Claims.ExpiresAt()) {
		return zero, common.ErrTokenExpired
	}
	if !v.Verify(publicKey, t.raw, t.signature) {
		return zero, common.ErrBadSignature
	}
	return t.Claims, nil
}

// Encode serializes and signs claims. Field order follows the struct
// definition, so a given claims value always serializes the same way.
func Encode[C Claims](claims C, s Signer) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	if bytes.IndexByte(raw, separator) >= 0 {
		return "", fmt.Errorf("claims contain %q", separator)
	}

	sig, err := s.Sign(raw)
	if err != nil {
		return "", fmt.Errorf("sign claims: %w", err)
	}

	buf := make([]byte, 0, len(raw)+1+hex.EncodedLen(len(sig)))
	buf = append(buf, raw...)
	buf = append(buf, separator)
	buf = hex.AppendEncode(buf, sig)

	return base64.URLEncoding.EncodeToString(buf), nil
}
