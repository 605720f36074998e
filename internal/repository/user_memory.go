package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"user_management/internal/models"
	"user_management/internal/security"
)

// UserMemory keeps users in a map. Lookup and write happen under one lock,
// so concurrent creates of the same username cannot both insert.
type UserMemory struct {
	mu     sync.RWMutex
	hasher security.Hasher
	users  map[int]models.User
	nextID int
}

var (
	_ UserRepository = (*UserMemory)(nil)
	_ Credentials    = (*UserMemory)(nil)
)

func NewUserMemory(hasher security.Hasher) *UserMemory {
	return &UserMemory{
		hasher: hasher,
		users:  make(map[int]models.User),
		nextID: 1,
	}
}

func (r *UserMemory) FindAll(_ context.Context) ([]models.UserResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.UserResponse, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Response())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserMemory) FindByID(_ context.Context, id int) (models.UserResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.UserResponse{}, fmt.Errorf("select user %d: %w", id, ErrNotFound)
	}
	return u.Response(), nil
}

func (r *UserMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.byUsername(username); ok {
		return &u, nil
	}
	return nil, nil
}

// byUsername must be called with mu held.
func (r *UserMemory) byUsername(username string) (models.User, bool) {
	for _, u := range r.users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

func (r *UserMemory) Create(_ context.Context, req models.UserRequest) (models.UserResponse, error) {
	dbReq, err := req.DbRequest(r.hasher)
	if err != nil {
		return models.UserResponse{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUsername(dbReq.Username); ok {
		return resolveExisting(r.hasher, &existing, req)
	}
	u := newStoredUser(r.nextID, dbReq)
	r.users[u.ID] = u
	r.nextID++
	return u.Response(), nil
}

func (r *UserMemory) UpdateByID(_ context.Context, id int, req models.UserRequest) (*models.UserResponse, error) {
	r.mu.RLock()
	_, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	dbReq, err := req.DbRequest(r.hasher)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return nil, nil
	}
	if other, taken := r.byUsername(dbReq.Username); taken && other.ID != id {
		return nil, fmt.Errorf("update user %d: %w", id, ErrConflict)
	}
	u := newStoredUser(id, dbReq)
	r.users[id] = u
	resp := u.Response()
	return &resp, nil
}

func (r *UserMemory) CreateWithID(_ context.Context, id int, req models.UserRequest) (models.UserResponse, error) {
	dbReq, err := req.DbRequest(r.hasher)
	if err != nil {
		return models.UserResponse{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; ok {
		return models.UserResponse{}, fmt.Errorf("insert user %d: %w", id, ErrConflict)
	}
	if _, taken := r.byUsername(dbReq.Username); taken {
		return models.UserResponse{}, fmt.Errorf("insert user %d: %w", id, ErrConflict)
	}
	u := newStoredUser(id, dbReq)
	r.users[id] = u
	// behave like an auto increment column that has seen id
	if id >= r.nextID {
		r.nextID = id + 1
	}
	return u.Response(), nil
}

func (r *UserMemory) DeleteByID(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("delete user %d: %w", id, ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func newStoredUser(id int, dbReq models.UserDbRequest) models.User {
	return models.User{
		ID:           id,
		Username:     dbReq.Username,
		PasswordHash: dbReq.PasswordHash,
		Salt:         dbReq.Salt,
		Admin:        dbReq.Admin,
	}
}
