package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aquasafe/aquasafe/pkg/models"
)

const hashPrefix = "v2:"

// preHash creates a SHA-256 hash of the password so bcrypt never sees more
// than 72 bytes
func preHash(password string) string {
	hash := sha256.Sum256([]byte(password))
	return hex.EncodeToString(hash[:])
}

// hashPassword returns the stored form of a password
func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(preHash(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "hash password")
	}
	return hashPrefix + string(hashed), nil
}

// checkPassword compares password against a stored hash. legacy is true
// when the hash predates SHA-256 pre-hashing and should be rewritten.
func checkPassword(stored, password string) (ok, legacy bool) {
	if actual, found := strings.CutPrefix(stored, hashPrefix); found {
		return bcrypt.CompareHashAndPassword([]byte(actual), []byte(preHash(password))) == nil, false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, true
}

func checkNewUser(u models.NewUser) error {
	if strings.TrimSpace(u.Username) == "" || u.Password == "" {
		return eris.New("username and password must not be empty")
	}
	if !u.Role.Valid() {
		return eris.Errorf("unknown role %q", u.Role)
	}
	return nil
}

const userColumns = `id, username, email, name, role, created_at, updated_at`

func scanUser(row rowScanner, extra ...any) (*models.User, error) {
	var u models.User
	dest := append([]any{&u.ID, &u.Username, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// CreateUser creates a new user with a hashed password
func (s *SQLStore) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	if err := checkNewUser(nu); err != nil {
		return nil, err
	}

	if _, err := s.GetUserByUsername(ctx, nu.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := hashPassword(nu.Password)
	if err != nil {
		return nil, err
	}

	now := utcMicro(time.Now())
	u := models.User{
		ID:        uuid.New(),
		Username:  strings.TrimSpace(nu.Username),
		Email:     nu.Email,
		Name:      nu.Name,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	args := &argList{dialect: s.dialect}
	marks := []string{
		args.add(u.ID),
		args.add(u.Username),
		args.add(u.Email),
		args.add(u.Name),
		args.add(string(u.Role)),
		args.add(u.CreatedAt),
		args.add(u.UpdatedAt),
		args.add(hash),
	}
	query := "INSERT INTO users (" + userColumns + ", password_hash) VALUES (" + strings.Join(marks, ", ") + ")"

	if _, err := s.db.ExecContext(ctx, query, args.values...); err != nil {
		return nil, eris.Wrapf(err, "%s: create user", s.dialect)
	}

	return &u, nil
}

// ValidateUser checks username and password
func (s *SQLStore) ValidateUser(ctx context.Context, username, password string) (*models.User, error) {
	args := &argList{dialect: s.dialect}
	query := "SELECT " + userColumns + ", password_hash FROM users WHERE username = " + args.add(username)

	var stored string
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args.values...), &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: query user", s.dialect)
	}

	ok, legacy := checkPassword(stored, password)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if legacy {
		if err := s.rehashPassword(ctx, u.ID, password); err != nil {
			s.logger.Warn("failed to migrate password", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
	}

	return u, nil
}

// rehashPassword rewrites a legacy hash in the current format
func (s *SQLStore) rehashPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	args := &argList{dialect: s.dialect}
	query := "UPDATE users SET password_hash = " + args.add(hash) + " WHERE id = " + args.add(id)
	if _, err := s.db.ExecContext(ctx, query, args.values...); err != nil {
		return eris.Wrap(err, "update password")
	}
	return nil
}

// GetUserByID returns ErrUserNotFound when no user has the id
func (s *SQLStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := &argList{dialect: s.dialect}
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = "+args.add(id), args)
}

// GetUserByUsername returns ErrUserNotFound when no user has the name
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := &argList{dialect: s.dialect}
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = "+args.add(username), args)
}

func (s *SQLStore) getUser(ctx context.Context, query string, args *argList) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args.values...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: get user", s.dialect)
	}
	return u, nil
}

// ListUsers returns every user ordered by username
func (s *SQLStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, eris.Wrapf(err, "%s: list users", s.dialect)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: scan user", s.dialect)
		}
		users = append(users, *u)
	}
	return users, eris.Wrapf(rows.Err(), "%s: iterate users", s.dialect)
}
