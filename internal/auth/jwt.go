package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the claim set handed to handlers after verification.
// Claims are fixed at mint time; a role change on the stored account only
// takes effect at the next login.
type Session struct {
	ID       string
	Name     string
	Email    string
	Role     string
	Provider string
}

type Claims struct {
	UserID   string `json:"sub"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Provider string `json:"provider,omitempty"`
	JTI      string `json:"jti"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	sessionTTL time.Duration
}

func NewManager(secret string, sessionTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// MintSession signs a self-contained session token for a verified identity.
func (m *Manager) MintSession(s Session) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		UserID:   s.ID,
		Name:     s.Name,
		Email:    s.Email,
		Role:     s.Role,
		Provider: s.Provider,
		JTI:      uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
			Subject:   s.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifySession checks signature and expiry and rehydrates the claim set.
// Expired tokens fail exactly like absent or tampered ones.
func (m *Manager) VerifySession(tokenStr string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return Session{}, err
	}
	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return Session{}, errors.New("invalid token")
	}

	return Session{
		ID:       claims.UserID,
		Name:     claims.Name,
		Email:    claims.Email,
		Role:     claims.Role,
		Provider: claims.Provider,
	}, nil
}
