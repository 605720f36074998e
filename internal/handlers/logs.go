package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"user_management/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errRange       = "'from' must be <= 'to'"
	errEventType   = "unknown 'type'; use CREATE, CREATE_WITH_ID, UPDATE or DELETE"
	errLoadLogs    = "failed to load logs"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var queryTimeLayouts = []string{time.RFC3339, layoutDateTime, layoutDate}

// @Summary      List audit events
// @Description  Filter user audit events by time range and type. A date-only 'to' covers the whole day.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to    query   string  false  "End of range, inclusive"  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(CREATE,CREATE_WITH_ID,UPDATE,DELETE)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, msg := logFilterFromQuery(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	switch {
	case errors.Is(err, service.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": errRange})
		return
	case errors.Is(err, service.ErrUnknownEventType):
		c.JSON(http.StatusBadRequest, gin.H{"error": errEventType})
		return
	case err != nil:
		if h.log != nil {
			h.log.Errorw("logs_list_failed", "err", err, "from", filter.From, "to", filter.To, "type", filter.Type)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errLoadLogs})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// logFilterFromQuery reads from, to and type. A non-empty message means the
// query was rejected.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, string) {
	f := service.LogFilter{Type: strings.ToUpper(strings.TrimSpace(c.Query("type")))}

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errToInvalid
		}
		if isDateOnly(qs) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRange
	}
	return f, ""
}

// isDateOnly reports whether s carries no time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
