package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/lib/pq"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

// UserDirectory reads users for name resolution and assignee checks. Accounts
// are managed by the identity service.
type UserDirectory struct {
	db *sql.DB
}

var _ ports.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(db *sql.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (r *UserDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := r.query(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserDirectory) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.query(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE role = $1 ORDER BY name`, string(role))
}

func (r *UserDirectory) query(ctx context.Context, q string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			u    domain.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

//go:embed schema.sql
var schema string

// Migrate creates the tables this service needs if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
