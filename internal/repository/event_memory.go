package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"user_management/internal/models"
)

type EventMemory struct {
	mu     sync.RWMutex
	events []models.UserEvent
}

var _ EventRepo = (*EventMemory)(nil)

func NewEventMemory() *EventMemory {
	return &EventMemory{}
}

func (r *EventMemory) Append(_ context.Context, e models.UserEvent) error {
	e = withDefaults(e)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *EventMemory) List(_ context.Context, from, to time.Time, typ string) ([]models.UserEvent, error) {
	typ = strings.ToUpper(strings.TrimSpace(typ))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.UserEvent, 0, len(r.events))
	for _, e := range r.events {
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
