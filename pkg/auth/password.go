package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost   = 14 // OWASP 2026 recommendation - stronger than cost 12 (Feb 2026)
	MinSecretLen = 4
	MaxSecretLen = 128
)

// Character classes for generated secrets. Digits are always included;
// the rest are opt-in per credential.
const (
	digitChars     = "0123456789"
	uppercaseChars = "ABCDEFGHJKLMNPQRSTUVWXYZ" // I and O omitted, easily misread
	lowercaseChars = "abcdefghijkmnpqrstuvwxyz" // l and o omitted
	specialChars   = "!@#$%^&*-_=+"
)

// SecretOptions controls the shape of a generated secret.
type SecretOptions struct {
	Length           int
	IncludeUppercase bool
	IncludeLowercase bool
	IncludeSpecial   bool
}

// HashSecret hashes a plaintext secret with bcrypt.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareSecret compares a plaintext secret against a stored bcrypt hash.
// bcrypt's comparison is constant-time over the derived key.
func CompareSecret(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

// GenerateSecret produces a random secret of the requested length containing
// at least one character from every enabled class. Digits are always enabled.
func GenerateSecret(opts SecretOptions) (string, error) {
	if opts.Length < MinSecretLen || opts.Length > MaxSecretLen {
		return "", fmt.Errorf("secret length must be between %d and %d", MinSecretLen, MaxSecretLen)
	}

	classes := []string{digitChars}
	if opts.IncludeUppercase {
		classes = append(classes, uppercaseChars)
	}
	if opts.IncludeLowercase {
		classes = append(classes, lowercaseChars)
	}
	if opts.IncludeSpecial {
		classes = append(classes, specialChars)
	}

	if len(classes) > opts.Length {
		return "", fmt.Errorf("secret length %d too short for %d required character classes", opts.Length, len(classes))
	}

	alphabet := ""
	for _, class := range classes {
		alphabet += class
	}

	secret := make([]byte, 0, opts.Length)

	// One character from each enabled class, so the secret meets its own
	// constraints regardless of what the uniform draw produces.
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		secret = append(secret, c)
	}

	for len(secret) < opts.Length {
		c, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		secret = append(secret, c)
	}

	if err := shuffle(secret); err != nil {
		return "", err
	}

	return string(secret), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// shuffle performs a Fisher-Yates shuffle driven by crypto/rand.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to read random bytes: %w", err)
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
