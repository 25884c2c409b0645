package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost factor applied to stored credentials.
const PasswordHashCost = 12

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateVerificationCode returns a uniformly random six digit code in
// [100000, 999999] as a string.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashToken produces the hex encoded SHA-256 digest used when persisting
// verification codes and reset tokens. Only digests are stored.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// VerifyTokenHash reports whether the candidate hashes to the stored digest
// using a constant time comparison.
func VerifyTokenHash(storedHash, candidate string) bool {
	if storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashToken(candidate))) == 1
}
