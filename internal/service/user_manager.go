package service

import (
	"context"

	"user_management/internal/models"
	"user_management/internal/repository"
)

// UserManagerService delegates every call to the repository unchanged.
// Errors are passed through as-is so callers can match repository sentinels.
type UserManagerService struct {
	repo repository.UserRepository
}

var _ UserManager = (*UserManagerService)(nil)

func NewUserManagerService(repo repository.UserRepository) *UserManagerService {
	return &UserManagerService{repo: repo}
}

func (s *UserManagerService) FindUsers(ctx context.Context) ([]models.UserResponse, error) {
	return s.repo.FindAll(ctx)
}

func (s *UserManagerService) CreateUser(ctx context.Context, req models.UserRequest) (models.UserResponse, error) {
	return s.repo.Create(ctx, req)
}

func (s *UserManagerService) FindUserByID(ctx context.Context, id int) (models.UserResponse, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateUserByID returns (nil, nil) when the user does not exist.
func (s *UserManagerService) UpdateUserByID(ctx context.Context, id int, req models.UserRequest) (*models.UserResponse, error) {
	return s.repo.UpdateByID(ctx, id, req)
}

func (s *UserManagerService) CreateUserWithID(ctx context.Context, id int, req models.UserRequest) (models.UserResponse, error) {
	return s.repo.CreateWithID(ctx, id, req)
}

func (s *UserManagerService) DeleteUserByID(ctx context.Context, id int) error {
	return s.repo.DeleteByID(ctx, id)
}
