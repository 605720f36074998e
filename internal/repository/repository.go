package repository

import (
	"context"
	"database/sql"
	"time"

	"user_management/internal/logger"
	"user_management/internal/models"
	"user_management/internal/observability"
	"user_management/internal/security"
)

// UserRepository is the storage contract the user manager is written against.
type UserRepository interface {
	FindAll(ctx context.Context) ([]models.UserResponse, error)
	Create(ctx context.Context, req models.UserRequest) (models.UserResponse, error)
	FindByID(ctx context.Context, id int) (models.UserResponse, error)
	// UpdateByID returns (nil, nil) when no user has the given id.
	UpdateByID(ctx context.Context, id int, req models.UserRequest) (*models.UserResponse, error)
	CreateWithID(ctx context.Context, id int, req models.UserRequest) (models.UserResponse, error)
	DeleteByID(ctx context.Context, id int) error
}

// Credentials exposes the stored hash and salt for sign-in.
type Credentials interface {
	// FindByUsername returns (nil, nil) if not found.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.UserEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.UserEvent, error)
}

type Repository struct {
	Users       UserRepository
	Credentials Credentials
	Events      EventRepo
}

// NewRepository wires the SQL implementations over one shared pool.
// User mutations are recorded in the audit log.
func NewRepository(db *sql.DB, dialect Dialect, hasher security.Hasher, prom *observability.Prom, log *logger.Logger) *Repository {
	users := NewUserSQL(db, dialect, hasher, prom)
	events := NewEventSQL(db, dialect, prom)
	return &Repository{
		Users:       NewAuditedUserRepository(users, events, log),
		Credentials: users,
		Events:      events,
	}
}

// NewMemoryRepository backs everything with process memory.
func NewMemoryRepository(hasher security.Hasher, log *logger.Logger) *Repository {
	users := NewUserMemory(hasher)
	events := NewEventMemory()
	return &Repository{
		Users:       NewAuditedUserRepository(users, events, log),
		Credentials: users,
		Events:      events,
	}
}
