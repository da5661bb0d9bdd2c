package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// PsychologistCodePrefix starts every psychologist public code.
const PsychologistCodePrefix = "PSI-"

// Unambiguous alphabet: no 0/O or 1/I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePsychologistCode returns a code such as "PSI-7KQ2MX".
func GeneratePsychologistCode() (string, error) {
	suffix, err := randomString(codeAlphabet, 6)
	if err != nil {
		return "", err
	}
	return PsychologistCodePrefix + suffix, nil
}

// GenerateInviteCode returns an 8 character guardian invitation code.
func GenerateInviteCode() (string, error) {
	return randomString(codeAlphabet, 8)
}

// NormalizeCode trims and uppercases a user-typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}
