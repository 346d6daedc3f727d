package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/observability"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

const userColumns = `id, email, password_hash, name, role, provider, reset_token, reset_token_expiry, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var passwordHash, provider *string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&passwordHash,
		&u.Name,
		&u.Role,
		&provider,
		&u.ResetToken,
		&u.ResetExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		return user.User{}, err
	}

	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if provider != nil {
		u.Provider = *provider
	}

	return u, nil
}

// GetByEmail is a case-sensitive exact match on the stored email.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_email"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_id"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	op := "users.create"

	err := r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

// List returns all accounts ordered by creation time, newest first.
// Password hashes and reset tokens stay out of the projection on purpose.
func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	op := "users.list"

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, email, name, role, provider, created_at, updated_at
			 FROM users
			 ORDER BY created_at DESC, id DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			var provider *string

			if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &provider, &u.CreatedAt, &u.UpdatedAt); err != nil {
				return err
			}
			if provider != nil {
				u.Provider = *provider
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id, role string) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.update_role"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
			id, role,
		)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.delete"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetResetToken stores a fresh reset token and expiry on the account,
// overwriting (and thereby invalidating) any prior outstanding token.
func (r *UsersRepo) SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.set_reset_token"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE users
			 SET reset_token = $2,
			     reset_token_expiry = $3,
			     updated_at = NOW()
			 WHERE email = $1`,
			email, token, expiresAt,
		)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetByResetToken only matches tokens that have not expired yet.
func (r *UsersRepo) GetByResetToken(ctx context.Context, token string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_reset_token"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE reset_token = $1 AND reset_token_expiry > NOW()`,
			token,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// ConsumeResetToken swaps the password hash and clears the token and its
// expiry in one statement. The WHERE clause re-checks validity at the point
// of mutation, so a replayed or expired token updates zero rows. Returns the
// affected account's email for the audit trail.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (string, error) {
	var email string
	var err error

	op := "users.consume_reset_token"

	err = r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE users
			 SET password_hash = $2,
			     reset_token = NULL,
			     reset_token_expiry = NULL,
			     updated_at = NOW()
			 WHERE reset_token = $1 AND reset_token_expiry > NOW()
			 RETURNING email`,
			token, newPasswordHash,
		).Scan(&email)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return email, nil
}
