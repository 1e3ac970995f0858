package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSigningKeyPair(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	require.NoError(t, err)
	assert.Len(t, kp.Public, ed25519.PublicKeySize)
	assert.Len(t, kp.Seed(), ed25519.SeedSize)

	sig := ed25519.Sign(ed25519.NewKeyFromSeed(kp.Seed()), []byte("msg"))
	assert.True(t, ed25519.Verify(kp.Public, []byte("msg"), sig))
}

func TestIsSigningPublicKey(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	assert.True(t, IsSigningPublicKey(kp.Public))
	assert.False(t, IsSigningPublicKey(nil))
	assert.False(t, IsSigningPublicKey(kp.Public[:31]))
	assert.False(t, IsSigningPublicKey(append(kp.Public, 0)))
}

func TestParseRSAPublicKey_AndEncrypt(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	pub, err := ParseRSAPublicKey(der)
	require.NoError(t, err)

	ct, err := EncryptPKCS1v15(pub, []byte("accept-private-key"))
	require.NoError(t, err)

	pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("accept-private-key"), pt)
}

func TestParseRSAPublicKey_Rejects(t *testing.T) {
	_, err := ParseRSAPublicKey([]byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(edPub)
	require.NoError(t, err)
	_, err = ParseRSAPublicKey(der)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}
