package user

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether r is one of the two roles the system persists.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Provider     string     `json:"provider,omitempty"` // empty means credentials
	ResetToken   *string    `json:"-"`
	ResetExpiry  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// EffectiveRole defaults to "user" when the stored record carries no role.
// Not expected in steady state, older rows may predate the role column.
func (u User) EffectiveRole() string {
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

// HasPassword reports whether this is a credentials account.
// Federated accounts carry no hash and can never log in with a password.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicView strips everything the admin directory must not expose.
type PublicView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicView {
	return PublicView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.EffectiveRole(),
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt,
	}
}
