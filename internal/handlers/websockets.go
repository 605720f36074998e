package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"user_management/internal/models"
	"user_management/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000

	msgUsers  = "users"
	msgEvents = "events"
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventCursor remembers what a feed has already pushed. Events at the cursor
// timestamp are tracked by id so equal timestamps are neither lost nor repeated.
type eventCursor struct {
	since time.Time
	seen  map[string]struct{}
}

func newEventCursor(since time.Time) *eventCursor {
	return &eventCursor{since: since.UTC(), seen: map[string]struct{}{}}
}

// advance returns the events not pushed yet and moves the cursor past them.
func (cur *eventCursor) advance(events []models.UserEvent) []models.UserEvent {
	var fresh []models.UserEvent
	for _, e := range events {
		if e.OccurredAt.Before(cur.since) {
			continue
		}
		if _, dup := cur.seen[e.EventID]; dup {
			continue
		}
		fresh = append(fresh, e)
	}
	for _, e := range fresh {
		switch {
		case e.OccurredAt.After(cur.since):
			cur.since = e.OccurredAt
			cur.seen = map[string]struct{}{e.EventID: {}}
		case e.OccurredAt.Equal(cur.since):
			cur.seen[e.EventID] = struct{}{}
		}
	}
	return fresh
}

// @Summary      Live user feed
// @Description  Upgrades to a websocket. Sends the user list once, then audit events as they are recorded.
// @Tags         system
// @Param        interval     query  string  false  "Poll interval, e.g. 500ms (max 10s)"
// @Param        interval_ms  query  int     false  "Poll interval in milliseconds"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)
	ctx := c.Request.Context()
	cursor := newEventCursor(time.Now())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendUsers(ctx, conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendEvents(ctx, conn, cursor); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) sendUsers(ctx context.Context, conn *websocket.Conn) error {
	users, err := h.services.FindUsers(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_find_users_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: msgUsers, Data: users})
}

// sendEvents pushes audit events recorded since the last push. A failed read
// of the log is reported to the client and the feed keeps going.
func (h *Handler) sendEvents(ctx context.Context, conn *websocket.Conn, cursor *eventCursor) error {
	events, err := h.services.EventLog.List(ctx, service.LogFilter{From: cursor.since})
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_list_events_failed", "err", err)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(wsEnvelope{Type: msgEvents, Error: errLoadLogs})
	}
	fresh := cursor.advance(events)
	if len(fresh) == 0 {
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: msgEvents, Data: fresh})
}
