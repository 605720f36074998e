package models

import (
	"fmt"

	"user_management/internal/security"
)

// User is a row of the users table.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don't expose hash
	Salt         string `json:"-"`
	Admin        bool   `json:"admin"`
}

// Response strips the password material.
func (u User) Response() UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Admin: u.Admin}
}

// UserRequest is the payload accepted by create and update.
type UserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Admin    bool   `json:"admin"`
}

// String keeps the plaintext password out of log lines and %v formatting.
func (r UserRequest) String() string {
	return fmt.Sprintf("{Username:%s Password:[redacted] Admin:%t}", r.Username, r.Admin)
}

// GoString covers %#v.
func (r UserRequest) GoString() string {
	return "models.UserRequest" + r.String()
}

// DbRequest hashes the password with a fresh salt.
func (r UserRequest) DbRequest(h security.Hasher) (UserDbRequest, error) {
	hash, salt, err := h.Hash(r.Password)
	if err != nil {
		return UserDbRequest{}, fmt.Errorf("hash password for %q: %w", r.Username, err)
	}
	return UserDbRequest{
		Username:     r.Username,
		PasswordHash: hash,
		Salt:         salt,
		Admin:        r.Admin,
	}, nil
}

// UserDbRequest is the storable form of a UserRequest.
type UserDbRequest struct {
	Username     string
	PasswordHash string
	Salt         string
	Admin        bool
}

// Args returns the bind parameters in column order:
// username, password_hash, salt, admin.
func (r UserDbRequest) Args() []any {
	return []any{r.Username, r.PasswordHash, r.Salt, r.Admin}
}

// UserResponse is the only user shape returned to callers.
type UserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}
