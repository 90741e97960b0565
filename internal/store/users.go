package store

import (
	"context"
	"fmt"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	Active       bool
}

// FindUserByEmail returns ErrNotFound when no user has the given email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	pb := s.Dialect.NewParamBuilder()
	row, err := QueryRow(ctx, s.DB,
		fmt.Sprintf("SELECT id, email, password_hash, roles, active FROM _users WHERE email = %s", pb.Add(email)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}

	roles, err := s.Dialect.ScanArray(row["roles"])
	if err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	return &User{
		ID:           fmt.Sprintf("%v", row["id"]),
		Email:        fmt.Sprintf("%v", row["email"]),
		PasswordHash: fmt.Sprintf("%v", row["password_hash"]),
		Roles:        roles,
		Active:       toBool(row["active"]),
	}, nil
}
