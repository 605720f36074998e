package repository

import (
	"context"
	"fmt"

	"user_management/internal/logger"
	"user_management/internal/models"
)

// AuditedUserRepository records every successful mutation of the wrapped
// repository in the event log. Reads pass straight through. A failed append
// is logged and never fails the user operation.
type AuditedUserRepository struct {
	UserRepository
	events EventRepo
	log    *logger.Logger
}

var _ UserRepository = (*AuditedUserRepository)(nil)

func NewAuditedUserRepository(users UserRepository, events EventRepo, log *logger.Logger) *AuditedUserRepository {
	return &AuditedUserRepository{UserRepository: users, events: events, log: log}
}

func (r *AuditedUserRepository) Create(ctx context.Context, req models.UserRequest) (models.UserResponse, error) {
	u, err := r.UserRepository.Create(ctx, req)
	if err != nil {
		return u, err
	}
	r.record(ctx, models.EventCreate, u.ID, fmt.Sprintf("user %q created", u.Username))
	return u, nil
}

func (r *AuditedUserRepository) CreateWithID(ctx context.Context, id int, req models.UserRequest) (models.UserResponse, error) {
	u, err := r.UserRepository.CreateWithID(ctx, id, req)
	if err != nil {
		return u, err
	}
	r.record(ctx, models.EventCreateWithID, u.ID, fmt.Sprintf("user %q created with id %d", u.Username, u.ID))
	return u, nil
}

func (r *AuditedUserRepository) UpdateByID(ctx context.Context, id int, req models.UserRequest) (*models.UserResponse, error) {
	u, err := r.UserRepository.UpdateByID(ctx, id, req)
	if err != nil || u == nil {
		return u, err
	}
	r.record(ctx, models.EventUpdate, u.ID, fmt.Sprintf("user %q updated (admin=%t)", u.Username, u.Admin))
	return u, nil
}

func (r *AuditedUserRepository) DeleteByID(ctx context.Context, id int) error {
	if err := r.UserRepository.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.record(ctx, models.EventDelete, id, fmt.Sprintf("user %d deleted", id))
	return nil
}

func (r *AuditedUserRepository) record(ctx context.Context, typ string, userID int, msg string) {
	err := r.events.Append(ctx, models.UserEvent{Type: typ, UserID: userID, Description: msg})
	if err != nil && r.log != nil {
		r.log.Warnw("audit_append_failed", "type", typ, "user_id", userID, "err", err)
	}
}
