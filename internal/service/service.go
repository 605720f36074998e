package service

import (
	"context"

	"user_management/internal/models"
	"user_management/internal/repository"
	"user_management/internal/security"
)

// UserManager is the orchestration layer over a UserRepository.
type UserManager interface {
	FindUsers(ctx context.Context) ([]models.UserResponse, error)
	CreateUser(ctx context.Context, req models.UserRequest) (models.UserResponse, error)
	FindUserByID(ctx context.Context, id int) (models.UserResponse, error)
	UpdateUserByID(ctx context.Context, id int, req models.UserRequest) (*models.UserResponse, error)
	CreateUserWithID(ctx context.Context, id int, req models.UserRequest) (models.UserResponse, error)
	DeleteUserByID(ctx context.Context, id int) error
}

type Authorization interface {
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (Identity, error)
}

// EventLog exposes the user audit log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.UserEvent, error)
}

type Service struct {
	UserManager
	Authorization
	EventLog
}

func NewService(repos *repository.Repository, hasher security.Hasher, auth TokenConfig) *Service {
	return &Service{
		UserManager:   NewUserManagerService(repos.Users),
		Authorization: NewAuthService(repos.Credentials, hasher, auth),
		EventLog:      NewEventLogService(repos.Events),
	}
}
