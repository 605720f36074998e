package handlers

import (
	"context"
	"net/http"
	"sync"

	"user_management/internal/models"
	"user_management/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genTokenToken string
	genTokenErr   error
	parseID       service.Identity
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (service.Identity, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockUserManager struct {
	users   []models.UserResponse
	user    models.UserResponse
	updated *models.UserResponse
	err     error

	calls   []string
	lastID  int
	lastReq models.UserRequest
}

func (m *mockUserManager) FindUsers(context.Context) ([]models.UserResponse, error) {
	m.calls = append(m.calls, "FindUsers")
	return m.users, m.err
}

func (m *mockUserManager) CreateUser(_ context.Context, req models.UserRequest) (models.UserResponse, error) {
	m.calls = append(m.calls, "CreateUser")
	m.lastReq = req
	return m.user, m.err
}

func (m *mockUserManager) FindUserByID(_ context.Context, id int) (models.UserResponse, error) {
	m.calls = append(m.calls, "FindUserByID")
	m.lastID = id
	return m.user, m.err
}

func (m *mockUserManager) UpdateUserByID(_ context.Context, id int, req models.UserRequest) (*models.UserResponse, error) {
	m.calls = append(m.calls, "UpdateUserByID")
	m.lastID = id
	m.lastReq = req
	return m.updated, m.err
}

func (m *mockUserManager) CreateUserWithID(_ context.Context, id int, req models.UserRequest) (models.UserResponse, error) {
	m.calls = append(m.calls, "CreateUserWithID")
	m.lastID = id
	m.lastReq = req
	return m.user, m.err
}

func (m *mockUserManager) DeleteUserByID(_ context.Context, id int) error {
	m.calls = append(m.calls, "DeleteUserByID")
	m.lastID = id
	return m.err
}

// mockEventLog is read from the websocket goroutine, hence the lock.
type mockEventLog struct {
	mu      sync.Mutex
	resp    []models.UserEvent
	err     error
	filters []service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.UserEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, f)
	return m.resp, m.err
}

func (m *mockEventLog) last() service.LogFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.filters) == 0 {
		return service.LogFilter{}
	}
	return m.filters[len(m.filters)-1]
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts...)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
