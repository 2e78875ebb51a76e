package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chapter-quiz-service/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, display_name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, nullString(user.DisplayName), user.PasswordHash, toNanos(user.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var (
		u       domain.User
		name    sql.NullString
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, password_hash, created_at FROM users WHERE user_id = ?`, id,
	).Scan(&u.ID, &name, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	u.DisplayName = name.String
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
