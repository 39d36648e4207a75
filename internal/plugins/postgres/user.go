package postgres

import (
	"context"
	"database/sql"

	"ripple/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

/*
	CREATE TABLE users (
		id           TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		avatar_ref   TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *UserRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user := &domain.User{ID: id}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		SELECT display_name, avatar_ref, created_at FROM users WHERE id = $1
	`, id).Scan(&user.DisplayName, &user.AvatarRef, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpsertUser mirrors the latest identity-provider profile.
func (r *UserRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO users (id, display_name, avatar_ref)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    avatar_ref   = EXCLUDED.avatar_ref
	`, u.ID, u.DisplayName, u.AvatarRef)
	return err
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, display_name, avatar_ref, created_at
		FROM users
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.AvatarRef, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
