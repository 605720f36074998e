package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"user_management/internal/models"
	"user_management/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

var eventCols = []string{"id", "occurred_at", "type", "user_id", "message"}

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQL(db, MySQL, nil)

	// generated id and timestamp are unknown; match the rest exactly
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "UPDATE", 3, "user 3 updated").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Append(ctx(t), models.UserEvent{
		Type:        "  update ",
		UserID:      3,
		Description: "user 3 updated",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQL(db, MySQL, nil)

	mock.ExpectExec("INSERT INTO user_events").
		WillReturnError(errors.New("down"))

	err = repo.Append(ctx(t), models.UserEvent{Type: "create", UserID: 1, Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_NoFilters(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQL(db, MySQL, nil)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(eventCols).
		AddRow("1", now, "CREATE", 1, "m1").
		AddRow("2", now.Add(time.Hour), "DELETE", 1, "m2")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, user_id, message FROM user_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if got[0].EventID != "1" || got[1].EventID != "2" || got[1].Type != "DELETE" || got[0].UserID != 1 {
		t.Fatalf("unexpected events: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQL(db, Postgres, nil)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	typ := " update " // will be normalized to UPDATE

	query := `SELECT id, occurred_at, type, user_id, message FROM user_events WHERE occurred_at >= $1 AND occurred_at <= $2 AND type = $3 ORDER BY occurred_at ASC`

	rows := sqlmock.NewRows(eventCols).
		AddRow("2", from, "UPDATE", 4, "b").
		AddRow("3", to, "UPDATE", 5, "c")

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(from.UTC(), to.UTC(), "UPDATE").
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), from, to, typ)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "2" || got[1].EventID != "3" {
		t.Fatalf("unexpected results: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_ScanError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQL(db, MySQL, nil)

	rows := sqlmock.NewRows(eventCols).
		// occurred_at wrong type to force scan error
		AddRow("x", 123, "CREATE", 1, "msg")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, user_id, message FROM user_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	_, err = repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err == nil || !strings.Contains(err.Error(), "scan event") {
		t.Fatalf("expected scan error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventMemory_ListFilters(t *testing.T) {
	repo := NewEventMemory()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, typ := range []string{"create", "UPDATE", "delete"} {
		if err := repo.Append(ctx(t), models.UserEvent{Type: typ, UserID: i + 1, OccurredAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := repo.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List all: %v, %d", err, len(all))
	}
	if all[0].Type != "CREATE" || all[0].EventID == "" {
		t.Fatalf("defaults not applied: %+v", all[0])
	}

	ranged, _ := repo.List(ctx(t), base.Add(30*time.Minute), base.Add(2*time.Hour), "")
	if len(ranged) != 2 || ranged[0].UserID != 2 || ranged[1].UserID != 3 {
		t.Fatalf("unexpected range result: %+v", ranged)
	}

	typed, _ := repo.List(ctx(t), time.Time{}, time.Time{}, " delete ")
	if len(typed) != 1 || typed[0].UserID != 3 {
		t.Fatalf("unexpected type result: %+v", typed)
	}
}

func TestEventSQL_SQLiteRoundTrip(t *testing.T) {
	conn := newSQLiteUnderTest(t).(*UserSQL).db
	repo := NewEventSQL(conn, SQLite, nil)

	at := time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)
	if err := repo.Append(ctx(t), models.UserEvent{Type: models.EventCreate, UserID: 1, Description: "user \"a\" created", OccurredAt: at}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repo.Append(ctx(t), models.UserEvent{Type: models.EventDelete, UserID: 1, Description: "user 1 deleted", OccurredAt: at.Add(time.Hour)}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := repo.List(ctx(t), at.Add(time.Minute), time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Type != models.EventDelete || !got[0].OccurredAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestEventSQL_ObservesOperations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	prom := observability.NewProm(prometheus.NewRegistry())
	repo := NewEventSQL(db, MySQL, prom)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectEventSQL)).
		WillReturnError(context.DeadlineExceeded)

	if err := repo.Append(ctx(t), models.UserEvent{Type: models.EventDelete, UserID: 9}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := repo.List(ctx(t), time.Time{}, time.Time{}, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	if got := testutil.CollectAndCount(prom.DbQueryDuration); got != 2 {
		t.Fatalf("expected latency series for append and list, got %d", got)
	}
	if got := testutil.ToFloat64(prom.DbErrorsTotal.WithLabelValues(opListEvents, "timeout")); got != 1 {
		t.Fatalf("expected one timeout for %s, got %v", opListEvents, got)
	}
	if got := testutil.ToFloat64(prom.DbErrorsTotal.WithLabelValues(opAppendEvent, "timeout")); got != 0 {
		t.Fatalf("append should not count as an error, got %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
