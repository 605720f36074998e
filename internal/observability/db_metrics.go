package observability

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"user_management/internal/repository/db"
)

// DB error classes used as the "class" label of DbErrorsTotal.
const (
	dbClassTimeout    = "timeout"
	dbClassCanceled   = "canceled"
	dbClassUnique     = "unique_violation"
	dbClassConnection = "connection"
	dbClassOther      = "unknown"
)

// ObserveDB times fn under the logical op name. A missing row is an answer,
// not a failure, so sql.ErrNoRows is recorded as ok.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

// classifyDBErr labels err from typed errors only. Unique violations use the
// same check the repositories use to answer ErrConflict.
func classifyDBErr(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dbClassTimeout
	case errors.Is(err, context.Canceled):
		return dbClassCanceled
	case db.IsUniqueViolation(err):
		return dbClassUnique
	case errors.As(err, &netErr) && netErr.Timeout():
		return dbClassTimeout
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone), errors.As(err, &netErr):
		return dbClassConnection
	default:
		return dbClassOther
	}
}
