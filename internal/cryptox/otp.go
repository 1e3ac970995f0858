package cryptox

import "crypto/rand"

// OTPLength is the number of characters in a one-time code.
const OTPLength = 8

// 32 symbols, so a random byte maps onto the alphabet without bias.
const otpAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOTP returns a random one-time code of OTPLength characters.
func GenerateOTP() (string, error) {
	b := make([]byte, OTPLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = otpAlphabet[int(b[i])%len(otpAlphabet)]
	}
	return string(b), nil
}
