package security

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// resetTokenBytes gives a 64-char hex token once encoded.
const resetTokenBytes = 32

// NewResetToken returns a cryptographically random opaque token and its
// expiry timestamp, ttl from now.
func NewResetToken(ttl time.Duration) (token string, expiresAt time.Time, err error) {
	buf := make([]byte, resetTokenBytes)

	_, err = rand.Read(buf)

	if err != nil {
		return "", time.Time{}, err
	}

	token = hex.EncodeToString(buf)
	expiresAt = time.Now().UTC().Add(ttl)

	return token, expiresAt, nil
}
