package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret returns a bcrypt hash of the raw secret using the given cost.
// Used for event join codes and admin keys.
func HashSecret(raw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret safely compares a bcrypt hash against a raw secret.
func VerifySecret(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
