package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"user_management/internal/models"
	"user_management/internal/observability"

	"github.com/google/uuid"
)

type EventSQL struct {
	db      *sql.DB
	dialect Dialect
	prom    *observability.Prom
}

// NewEventSQL builds the audit store over db. prom may be nil.
func NewEventSQL(db *sql.DB, dialect Dialect, prom *observability.Prom) *EventSQL {
	return &EventSQL{db: db, dialect: dialect, prom: prom}
}

const (
	insertEventSQL = `INSERT INTO user_events (id, occurred_at, type, user_id, message) VALUES (?, ?, ?, ?, ?)`
	selectEventSQL = `SELECT id, occurred_at, type, user_id, message FROM user_events`

	opAppendEvent = "events.append"
	opListEvents  = "events.list"
)

// withDefaults fills EventID and OccurredAt and normalizes the type.
func withDefaults(e models.UserEvent) models.UserEvent {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}
	e.Type = strings.ToUpper(strings.TrimSpace(e.Type))
	return e
}

// Append inserts a new event. EventID and OccurredAt are filled when empty.
func (r *EventSQL) Append(ctx context.Context, e models.UserEvent) error {
	e = withDefaults(e)
	err := observe(r.prom, opAppendEvent, func() error {
		_, err := r.db.ExecContext(ctx, r.dialect.Rebind(insertEventSQL),
			e.EventID,
			e.OccurredAt,
			e.Type,
			e.UserID,
			e.Description,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.Type, err)
	}
	return nil
}

// List returns events filtered by [from, to] (inclusive) and/or type, ordered ASC.
func (r *EventSQL) List(ctx context.Context, from, to time.Time, typ string) ([]models.UserEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC())
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	var out []models.UserEvent
	err := observe(r.prom, opListEvents, func() error {
		rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), args...)
		if err != nil {
			return fmt.Errorf("select events: %w", err)
		}
		defer rows.Close()

		out = make([]models.UserEvent, 0, 64)
		for rows.Next() {
			var ev models.UserEvent
			if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.UserID, &ev.Description); err != nil {
				return fmt.Errorf("scan event: %w", err)
			}
			ev.OccurredAt = ev.OccurredAt.UTC()
			out = append(out, ev)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
