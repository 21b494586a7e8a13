package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/aquasafe/aquasafe/pkg/config"
	"github.com/aquasafe/aquasafe/pkg/models"
	"github.com/aquasafe/aquasafe/pkg/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore persists dashboard users and checks their credentials
type UserStore interface {
	CreateUser(ctx context.Context, u models.NewUser) (*models.User, error)
	ValidateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Store is a complete backing: samples, users, schema and health
type Store interface {
	repository.SampleStore
	UserStore
	Migrate(ctx context.Context) error
	Health(ctx context.Context) HealthStatus
	Close() error
}

// Open connects the backing selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN())
	default:
		return nil, eris.Errorf("database: unknown driver %q", cfg.Driver)
	}
}

func utcMicro(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
