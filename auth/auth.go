// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInvalidAdminToken = errors.New("invalid admin token")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateCode creates a cryptographically random 6-digit verification
// code, zero-padded, e.g. "042917".
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode computes the salted HMAC-SHA256 hash of a verification code
// for a specific voter. Binding the voter ID into the MAC means an
// identical 6-digit code hashes differently per voter.
func HashCode(voterID, code, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(voterID))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyCode checks a candidate code against a stored hash in constant
// time.
func VerifyCode(voterID, code, salt, storedHash string) bool {
	expected := HashCode(voterID, code, salt)
	return hmac.Equal([]byte(expected), []byte(storedHash))
}

// ValidateAdminToken compares the provided token against the configured
// one in constant time.
func ValidateAdminToken(provided, configured string) error {
	if configured == "" || !hmac.Equal([]byte(provided), []byte(configured)) {
		return ErrInvalidAdminToken
	}
	return nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
