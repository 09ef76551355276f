package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// KeyEncoding selects the text form of a generated secret.
type KeyEncoding string

const (
	KeyEncodingHex    KeyEncoding = "hex"
	KeyEncodingBase64 KeyEncoding = "base64"

	// DefaultSecretKeyBytes matches the HS256 block size.
	DefaultSecretKeyBytes = 64
	minSecretKeyBytes     = 32
)

// GenerateSecretKey returns byteLength random bytes encoded for use as a token
// signing secret. It is meant for operators provisioning configuration.
func GenerateSecretKey(byteLength int, encoding KeyEncoding) (string, error) {
	if byteLength < minSecretKeyBytes {
		return "", fmt.Errorf("secret key must be at least %d bytes", minSecretKeyBytes)
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}

	switch encoding {
	case KeyEncodingHex, "":
		return hex.EncodeToString(buf), nil
	case KeyEncodingBase64:
		return base64.StdEncoding.EncodeToString(buf), nil
	default:
		return "", fmt.Errorf("unsupported key encoding %q", encoding)
	}
}
