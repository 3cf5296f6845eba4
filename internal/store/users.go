package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// User is one registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser registers a new account and returns its id.
func (s *Store) CreateUser(email, passwordHash string) (int64, error) {
	res, err := s.db.Exec(`insert into users (email, password_hash, created_at)
		values (?,?,?)`, email, passwordHash, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetUserByEmail returns the account for email, or ErrNotFound.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	var u User
	row := s.db.QueryRow(`select id, email, password_hash, created_at
		from users where email = ?`, email)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
