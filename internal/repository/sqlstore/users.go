package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// UserDB implements repository.UserRepository.
type UserDB struct {
	c *conn
}

var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `user_id, username, email, password_hash, created_at`

// Create inserts a user and fills in ID and CreatedAt.
//
// Username and email are unique regardless of case. When both collide the
// error names whichever the database reports first.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	createdAt := u.c.now()
	id, err := u.c.insertReturningID(ctx,
		`INSERT INTO users (username, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING user_id`,
		user.Username, user.Email, user.PasswordHash, createdAt,
	)
	if err != nil {
		if v := u.c.d.classify(err); v.kind == uniqueViolation {
			field := "username"
			if v.mentions("email") {
				field = "email"
			}
			return apperror.UniquenessViolation("user", field)
		} else if v.kind == notNullViolation {
			return apperror.ConstraintViolation("username", "username, email and password hash are required")
		}
		return fmt.Errorf("sqlstore: creating user %q: %w", user.Username, err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(u.c.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}
	return user, nil
}

// GetByUsername looks a user up case-insensitively.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(u.c.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER(?)`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundBy("user", "username", username)
		}
		return nil, fmt.Errorf("sqlstore: getting user by username %q: %w", username, err)
	}
	return user, nil
}

// GetByEmail looks a user up case-insensitively.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(u.c.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundBy("user", "email", email)
		}
		return nil, fmt.Errorf("sqlstore: getting user by email: %w", err)
	}
	return user, nil
}

// UpdatePasswordHash is the only mutation a user row supports.
func (u *UserDB) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := u.c.exec(ctx, `UPDATE users SET password_hash = ? WHERE user_id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("sqlstore: updating password for user %d: %w", id, err)
	}
	return requireAffected(res, apperror.NotFound("user", id))
}

// Delete removes the user's reviews and wishlist entries, then the user.
// Nothing is removed if the user does not exist.
func (u *UserDB) Delete(ctx context.Context, id int64) error {
	return u.c.atomically(ctx, func(c *conn) error {
		if _, err := c.exec(ctx, `DELETE FROM reviews WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("sqlstore: deleting reviews of user %d: %w", id, err)
		}
		if _, err := c.exec(ctx, `DELETE FROM wishlist_entries WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("sqlstore: deleting wishlist of user %d: %w", id, err)
		}
		res, err := c.exec(ctx, `DELETE FROM users WHERE user_id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlstore: deleting user %d: %w", id, err)
		}
		return requireAffected(res, apperror.NotFound("user", id))
	})
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// userExists backs foreign-key diagnosis for reviews and wishlist entries.
func userExists(ctx context.Context, c *conn, id int64) (bool, error) {
	return c.exists(ctx, `SELECT 1 FROM users WHERE user_id = ?`, id)
}
