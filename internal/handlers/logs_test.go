package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"user_management/internal/models"
	"user_management/internal/repository"
	"user_management/internal/security"
	"user_management/internal/service"
)

var testHashParams = security.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.UserEvent{
		{EventID: "e1", OccurredAt: now, Type: models.EventCreate, UserID: 1, Description: "user \"a\" created"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: models.EventUpdate, UserID: 1, Description: "user \"a\" updated (admin=true)"},
	}
	logs := &mockEventLog{resp: events}
	r := newTestRouter(&service.Service{EventLog: logs})

	// invalid 'from' -> 400
	w := serve(t, r, http.MethodGet, "/api/v1/logs?from=notatime", "", nil)
	if w.Code != http.StatusBadRequest || errorBody(t, w) != errFromInvalid {
		t.Fatalf("expected 400 invalid 'from', got %d %s", w.Code, w.Body.String())
	}

	// valid range and lowercase type
	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=update"
	w = serve(t, r, http.MethodGet, q, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                `json:"count"`
		Events []models.UserEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 || out.Events[0].UserID != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	f := logs.last()
	if f.Type != "UPDATE" || !f.From.Equal(now) || !f.To.Equal(now.Add(2*time.Second)) {
		t.Fatalf("unexpected filter: %+v", f)
	}

	// trailing slash is accepted too
	w = serve(t, r, http.MethodGet, "/api/v1/logs/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trailing slash status=%d", w.Code)
	}
}

func TestLogsHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	logs := &mockEventLog{}
	r := newTestRouter(&service.Service{EventLog: logs})

	w := serve(t, r, http.MethodGet, "/api/v1/logs?from=2025-08-01&to=2025-08-31", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	f := logs.last()
	wantFrom := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 8, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !f.From.Equal(wantFrom) || !f.To.Equal(wantTo) {
		t.Fatalf("got from=%v to=%v", f.From, f.To)
	}
}

func TestLogsHandler_Errors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		err  error
		code int
		msg  string
	}{
		{"bad to", "/api/v1/logs?to=31/08/2025", nil, http.StatusBadRequest, errToInvalid},
		{"reversed range", "/api/v1/logs?from=2025-09-01&to=2025-08-01", nil, http.StatusBadRequest, errRange},
		{"service range error", "/api/v1/logs", service.ErrInvalidTimeRange, http.StatusBadRequest, errRange},
		{"unknown type", "/api/v1/logs?type=bogus", fmt.Errorf("%w %q", service.ErrUnknownEventType, "bogus"), http.StatusBadRequest, errEventType},
		{"storage error", "/api/v1/logs", errors.New("db down"), http.StatusInternalServerError, errLoadLogs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{EventLog: &mockEventLog{err: tc.err}})
			w := serve(t, r, http.MethodGet, tc.url, "", nil)
			if w.Code != tc.code || errorBody(t, w) != tc.msg {
				t.Fatalf("got %d %s; want %d %q", w.Code, w.Body.String(), tc.code, tc.msg)
			}
		})
	}
}

func TestLogsHandler_TypeCheckedAgainstAuditVocabulary(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepository(security.NewHasher(testHashParams), nil)
	_, err := repos.Users.Create(ctx, models.UserRequest{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repos.Users.DeleteByID(ctx, 1); err != nil {
		t.Fatalf("seed delete: %v", err)
	}
	r := newTestRouter(&service.Service{EventLog: service.NewEventLogService(repos.Events)})

	w := serve(t, r, http.MethodGet, "/api/v1/logs?type=bogus", "", nil)
	if w.Code != http.StatusBadRequest || errorBody(t, w) != errEventType {
		t.Fatalf("expected 400 for unknown type, got %d %s", w.Code, w.Body.String())
	}

	w = serve(t, r, http.MethodGet, "/api/v1/logs?type=delete", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                `json:"count"`
		Events []models.UserEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || out.Events[0].Type != models.EventDelete || out.Events[0].UserID != 1 {
		t.Fatalf("unexpected delete events: %+v", out)
	}
}

func TestLogsHandler_AuthRequired(t *testing.T) {
	s := &service.Service{EventLog: &mockEventLog{}, Authorization: &mockAuth{parseID: service.Identity{UserID: 3}}}
	r := newTestRouter(s, WithAuthRequired(true))

	if w := serve(t, r, http.MethodGet, "/api/v1/logs", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/v1/logs", "", authHeader("valid")); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-08-27T15:04:05Z", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27T18:04:05+03:00", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27 15:04:05", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("parseQueryTime(%q) err=%v", tc.in, err)
		}
		if tc.ok && (!got.Equal(tc.want) || got.Location() != time.UTC) {
			t.Fatalf("parseQueryTime(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}
