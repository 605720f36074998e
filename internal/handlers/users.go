package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"user_management/internal/models"
	"user_management/internal/repository"
	"user_management/internal/security"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidID      = "Invalid ID"
	errUseUpdateRoute = "To modify the user, try the PUT /users/{userId} endpoint"
	errEmptyPassword  = "password must not be empty"
	errNonNumericID   = "userId must be an integer"
	errTimeout        = "request timed out"
	errInternal       = "internal server error"
)

// statusFor maps a user operation error to the HTTP status and message shown
// to the caller. Missing ids and conflicting creates both answer 403.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusForbidden, errInvalidID
	case errors.Is(err, repository.ErrConflict):
		return http.StatusForbidden, errUseUpdateRoute
	case errors.Is(err, security.ErrEmptyPassword):
		return http.StatusBadRequest, errEmptyPassword
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errTimeout
	default:
		return http.StatusInternalServerError, errInternal
	}
}

// respondUserError logs server-side failures and writes the mapped status.
func (h *Handler) respondUserError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code, msg := statusFor(err)
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if code >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(code, gin.H{"error": msg})
}

// parseUserID reads the :userId path parameter and answers 400 when it is not an integer.
func (h *Handler) parseUserID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNonNumericID})
		return 0, false
	}
	return id, true
}

// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}   models.UserResponse
// @Failure      500  {object}  map[string]string
// @Router       /users [get]
func (h *Handler) findUsers(c *gin.Context) {
	users, err := h.services.FindUsers(c.Request.Context())
	if err != nil {
		h.respondUserError(c, "users_find_all_failed", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary      Create user
// @Description  Repeating an identical request returns the stored user. A different password or admin flag for an existing username is rejected.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      models.UserRequest  true  "User"
// @Success      201   {object}  models.UserResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /users [post]
func (h *Handler) createUser(c *gin.Context) {
	var req models.UserRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	u, err := h.services.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.respondUserError(c, "users_create_failed", err, "username", req.Username)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        userId  path      int  true  "User ID"
// @Success      200     {object}  models.UserResponse
// @Failure      400     {object}  map[string]string
// @Failure      403     {object}  map[string]string  "unknown id"
// @Failure      500     {object}  map[string]string
// @Router       /users/{userId} [get]
func (h *Handler) findUserByID(c *gin.Context) {
	id, ok := h.parseUserID(c)
	if !ok {
		return
	}

	u, err := h.services.FindUserByID(c.Request.Context(), id)
	if err != nil {
		h.respondUserError(c, "users_find_failed", err, "user_id", id)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Update user
// @Description  Replaces username, password and admin flag. An unknown id answers 200 with a null body.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        userId  path      int                 true  "User ID"
// @Param        body    body      models.UserRequest  true  "User"
// @Success      200     {object}  models.UserResponse
// @Failure      400     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /users/{userId} [put]
func (h *Handler) updateUserByID(c *gin.Context) {
	id, ok := h.parseUserID(c)
	if !ok {
		return
	}
	var req models.UserRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	u, err := h.services.UpdateUserByID(c.Request.Context(), id, req)
	if err != nil {
		h.respondUserError(c, "users_update_failed", err, "user_id", id)
		return
	}
	// u is nil for an unknown id and renders as null.
	c.JSON(http.StatusOK, u)
}

// @Summary      Create user with id
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        userId  path      int                 true  "User ID"
// @Param        body    body      models.UserRequest  true  "User"
// @Success      201     {object}  models.UserResponse
// @Failure      400     {object}  map[string]string
// @Failure      403     {object}  map[string]string  "id or username taken"
// @Failure      500     {object}  map[string]string
// @Router       /users/{userId} [post]
func (h *Handler) createUserWithID(c *gin.Context) {
	id, ok := h.parseUserID(c)
	if !ok {
		return
	}
	var req models.UserRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	u, err := h.services.CreateUserWithID(c.Request.Context(), id, req)
	if err != nil {
		h.respondUserError(c, "users_create_with_id_failed", err, "user_id", id, "username", req.Username)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary      Delete user
// @Tags         users
// @Param        userId  path  int  true  "User ID"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string  "unknown id"
// @Failure      500  {object}  map[string]string
// @Router       /users/{userId} [delete]
func (h *Handler) deleteUserByID(c *gin.Context) {
	id, ok := h.parseUserID(c)
	if !ok {
		return
	}

	if err := h.services.DeleteUserByID(c.Request.Context(), id); err != nil {
		h.respondUserError(c, "users_delete_failed", err, "user_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}
