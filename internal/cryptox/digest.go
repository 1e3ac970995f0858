package cryptox

import "github.com/zeebo/blake3"

// DigestSize is the length in bytes of a blob digest.
const DigestSize = 32

// Digest returns the BLAKE3-256 digest of an encrypted blob. Clients present
// the digest of the blob they last saw when they submit an update.
func Digest(blob []byte) []byte {
	sum := blake3.Sum256(blob)
	return sum[:]
}
