package security_test

import (
	"testing"
	"time"

	"github.com/mlopez-dev/authhub/internal/security"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := security.HashPassword("s3cret-enough")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if hash == "s3cret-enough" {
		t.Fatalf("hash equals plaintext")
	}

	if err := security.CheckPassword(hash, "s3cret-enough"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}

	if err := security.CheckPassword(hash, "wrong-password"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := security.HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	h2, err := security.HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if h1 == h2 {
		t.Fatalf("two hashes of the same password are identical")
	}
}

func TestValidateNewPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		minLen   int
		wantErr  bool
	}{
		{"long_enough", "12345678", 0, false},
		{"longer", "a-much-longer-password", 0, false},
		{"one_short", "1234567", 0, true},
		{"empty", "", 0, true},
		{"configured_min_rejects", "12345678", 12, true},
		{"configured_min_accepts", "123456789012", 12, false},
		{"zero_falls_back_to_default", "1234567", 0, true},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidateNewPassword(tt.password, tt.minLen)

			if tt.wantErr && err == nil {
				t.Fatalf("expected rejection for %q", tt.password)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected rejection for %q: %v", tt.password, err)
			}
		})
	}
}

func TestNewResetToken(t *testing.T) {
	ttl := time.Hour
	before := time.Now().UTC()

	token, expiresAt, err := security.NewResetToken(ttl)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if len(token) != 64 {
		t.Fatalf("token length %d, want 64 hex chars", len(token))
	}

	if expiresAt.Before(before.Add(ttl - time.Minute)) || expiresAt.After(before.Add(ttl+time.Minute)) {
		t.Fatalf("expiry %v not about %v from now", expiresAt, ttl)
	}

	other, _, err := security.NewResetToken(ttl)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	if token == other {
		t.Fatalf("two tokens are identical")
	}
}
