package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// AuditCursor is an opaque keyset cursor over (timestamp, id), newest first.
type AuditCursor struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
}

func EncodeAuditCursor(ts time.Time, id string) (string, error) {
	b, err := json.Marshal(AuditCursor{Timestamp: ts, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeAuditCursor(cursor string) (AuditCursor, error) {
	if cursor == "" {
		return AuditCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return AuditCursor{}, err
	}

	var c AuditCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return AuditCursor{}, err
	}

	if c.Timestamp.IsZero() || c.ID == "" {
		return AuditCursor{}, errors.New("invalid cursor")
	}

	return c, nil
}
