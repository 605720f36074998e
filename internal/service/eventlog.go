package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"user_management/internal/models"
	"user_management/internal/repository"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	ErrUnknownEventType = errors.New("unknown event type")
)

// LogFilter narrows the audit trail. Zero times leave that side open and an
// empty Type matches every event.
type LogFilter struct {
	From time.Time
	To   time.Time
	Type string
}

// normalize moves both bounds to UTC and canonicalises Type to one of
// models.EventTypes.
func (f LogFilter) normalize() (LogFilter, error) {
	out := LogFilter{
		From: utcOrZero(f.From),
		To:   utcOrZero(f.To),
		Type: strings.ToUpper(strings.TrimSpace(f.Type)),
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	if out.Type != "" && !models.IsEventType(out.Type) {
		return LogFilter{}, fmt.Errorf("%w %q", ErrUnknownEventType, f.Type)
	}
	return out, nil
}

func utcOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// EventLogService reads the user audit trail written by the audited repository.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns the events matching f, oldest first. A rejected filter never
// reaches storage.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.UserEvent, error) {
	q, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, q.From, q.To, q.Type)
}
