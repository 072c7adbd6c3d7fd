package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/access"
	"shiptrack/internal/services"
)

// CreateUser inserts a user. Email addresses are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, user access.User) (*access.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Name == "" || user.Email == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create user", "name and email are required", nil)
	}
	if _, ok := access.ParseRole(string(user.Role)); !ok {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create user", fmt.Sprintf("unknown role %q", user.Role), nil)
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO users (name, email, role, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.Role, boolToInt(user.IsAdmin), formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("create user", fmt.Sprintf("email %q already registered", user.Email))
		}
		return nil, persistenceError("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistenceError("create user", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser resolves a user by identifier. It returns nil when the user does not exist.
func (s *Store) GetUser(ctx context.Context, id int64) (*access.User, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get user", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by identifier.
func (s *Store) ListUsers(ctx context.Context) ([]*access.User, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, persistenceError("list users", err)
	}
	defer rows.Close()

	var users []*access.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, persistenceError("list users", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list users", err)
	}
	return users, nil
}

func scanUser(scanner rowScanner) (*access.User, error) {
	var (
		user       access.User
		role       string
		isAdmin    int64
		createdRaw string
	)
	if err := scanner.Scan(&user.ID, &user.Name, &user.Email, &role, &isAdmin, &createdRaw); err != nil {
		return nil, err
	}
	user.Role = access.Role(role)
	user.IsAdmin = isAdmin != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = created
	}
	return &user, nil
}
