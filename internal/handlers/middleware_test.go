package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_management/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + a protected endpoint
func newMiddlewareOnlyRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/secure", h.identityMiddleware, func(c *gin.Context) {
		id, _ := identityFrom(c)
		c.JSON(http.StatusOK, gin.H{"ok": true, "userId": id.UserID, "admin": id.Admin})
	})
	r.GET("/admin", h.identityMiddleware, h.adminOnly, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestIdentityMiddleware_Errors(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		parseErr error
		errMsg   string
	}{
		{name: "missing header", header: "", errMsg: "missing Authorization header"},
		{name: "invalid scheme", header: "Token abc", errMsg: "invalid Authorization header format"},
		{name: "bearer without token", header: "Bearer", errMsg: "invalid Authorization header format"},
		{name: "bearer with blank token", header: "Bearer   ", errMsg: "invalid Authorization header format"},
		{name: "expired/invalid token", header: "Bearer expired", parseErr: errors.New("expired"), errMsg: "invalid or expired token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseErr: tc.parseErr}
			r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401 (body=%s)", w.Code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.errMsg {
				t.Fatalf("error message: got %q, want %q", out.Error, tc.errMsg)
			}
		})
	}
}

func TestIdentityMiddleware_SuccessSetsIdentityAndProceeds(t *testing.T) {
	auth := &mockAuth{parseID: service.Identity{UserID: 123, Admin: true}}
	r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp struct {
		OK     bool `json:"ok"`
		UserID int  `json:"userId"`
		Admin  bool `json:"admin"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.UserID != 123 || !resp.Admin {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if auth.lastParseToken != "good-token" {
		t.Fatalf("ParseToken got %q, want %q", auth.lastParseToken, "good-token")
	}
}

func TestAdminOnly(t *testing.T) {
	cases := []struct {
		name  string
		admin bool
		want  int
	}{
		{name: "admin passes", admin: true, want: http.StatusOK},
		{name: "non-admin forbidden", admin: false, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: service.Identity{UserID: 1, Admin: tc.admin}}
			r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer t")
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status: got %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestAdminOnly_WithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&service.Service{}, nil)
	r := gin.New()
	r.GET("/admin", h.adminOnly, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("sets deadline", func(t *testing.T) {
		h := NewHandler(&service.Service{}, nil, WithRequestTimeout(50*time.Millisecond))
		r := gin.New()
		var deadline time.Time
		var ok bool
		r.GET("/t", h.timeoutMiddleware, func(c *gin.Context) {
			deadline, ok = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/t", nil))
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			t.Fatalf("expected deadline within 50ms, got ok=%v deadline=%v", ok, deadline)
		}
	})

	t.Run("disabled leaves context alone", func(t *testing.T) {
		h := NewHandler(&service.Service{}, nil)
		r := gin.New()
		var ok bool
		r.GET("/t", h.timeoutMiddleware, func(c *gin.Context) {
			_, ok = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/t", nil))
		if ok {
			t.Fatalf("expected no deadline")
		}
	})

	t.Run("expired deadline maps to 504", func(t *testing.T) {
		code, _ := statusFor(context.DeadlineExceeded)
		if code != http.StatusGatewayTimeout {
			t.Fatalf("expected 504, got %d", code)
		}
	})
}
