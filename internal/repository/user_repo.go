package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"user_management/internal/models"
	"user_management/internal/observability"
	"user_management/internal/security"
)

type UserSQL struct {
	db      *sql.DB
	dialect Dialect
	hasher  security.Hasher
	prom    *observability.Prom
}

// NewUserSQL builds a repository over db. prom may be nil.
func NewUserSQL(db *sql.DB, dialect Dialect, hasher security.Hasher, prom *observability.Prom) *UserSQL {
	return &UserSQL{db: db, dialect: dialect, hasher: hasher, prom: prom}
}

// Ensure implementation of the repository interfaces at compile time.
var (
	_ UserRepository = (*UserSQL)(nil)
	_ Credentials    = (*UserSQL)(nil)
)

const (
	findAllUsersSQL       = `SELECT id, username, admin FROM users ORDER BY id`
	findUserByIDSQL       = `SELECT id, username, admin FROM users WHERE id = ?`
	findUserByUsernameSQL = `SELECT id, username, password_hash, salt, admin FROM users WHERE username = ?`
	createUserSQL         = `INSERT INTO users (username, password_hash, salt, admin) VALUES (?, ?, ?, ?)`
	createUserWithIDSQL   = `INSERT INTO users (id, username, password_hash, salt, admin) VALUES (?, ?, ?, ?, ?)`
	updateUserByIDSQL     = `UPDATE users SET username = ?, password_hash = ?, salt = ?, admin = ? WHERE id = ?`
	deleteUserByIDSQL     = `DELETE FROM users WHERE id = ?`

	returningIDSQL = ` RETURNING id`
)

// logical op names for metrics
const (
	opFindAll        = "users.find_all"
	opFindByID       = "users.find_by_id"
	opFindByUsername = "users.find_by_username"
	opCreate         = "users.create"
	opCreateWithID   = "users.create_with_id"
	opUpdateByID     = "users.update_by_id"
	opDeleteByID     = "users.delete_by_id"
)

func (r *UserSQL) observe(op string, fn func() error) error {
	return observe(r.prom, op, fn)
}

// observe records fn in the DB metrics when prom is set.
func observe(prom *observability.Prom, op string, fn func() error) error {
	if prom != nil {
		return prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UserSQL) exec(ctx context.Context, op, q string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := r.observe(op, func() error {
		var err error
		res, err = r.db.ExecContext(ctx, r.dialect.Rebind(q), args...)
		return err
	})
	return res, err
}

// queryUsers scans (id, username, admin) rows.
func (r *UserSQL) queryUsers(ctx context.Context, op, q string, args ...any) ([]models.UserResponse, error) {
	var out []models.UserResponse
	err := r.observe(op, func() error {
		rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]models.UserResponse, 0, 16)
		for rows.Next() {
			var u models.UserResponse
			if err := rows.Scan(&u.ID, &u.Username, &u.Admin); err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindAll returns every user in id order.
func (r *UserSQL) FindAll(ctx context.Context) ([]models.UserResponse, error) {
	users, err := r.queryUsers(ctx, opFindAll, findAllUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

// FindByID fails with ErrNotFound if no row matches.
func (r *UserSQL) FindByID(ctx context.Context, id int) (models.UserResponse, error) {
	users, err := r.queryUsers(ctx, opFindByID, findUserByIDSQL, id)
	if err != nil {
		return models.UserResponse{}, fmt.Errorf("select user %d: %w", id, err)
	}
	if len(users) == 0 {
		return models.UserResponse{}, fmt.Errorf("select user %d: %w", id, ErrNotFound)
	}
	return users[0], nil
}

// FindByUsername fetches a user with its password material. Returns (nil, nil) if not found.
func (r *UserSQL) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.observe(opFindByUsername, func() error {
		return r.db.QueryRowContext(ctx, r.dialect.Rebind(findUserByUsernameSQL), username).
			Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &u.Admin)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	return &u, nil
}

// Create inserts a new user, or returns the stored one when the request
// repeats its exact credentials and admin flag.
func (r *UserSQL) Create(ctx context.Context, req models.UserRequest) (models.UserResponse, error) {
	dbReq, err := req.DbRequest(r.hasher)
	if err != nil {
		return models.UserResponse{}, err
	}

	existing, err := r.FindByUsername(ctx, dbReq.Username)
	if err != nil {
		return models.UserResponse{}, err
	}
	if existing != nil {
		return resolveExisting(r.hasher, existing, req)
	}

	id, err := r.insert(ctx, dbReq)
	if err != nil {
		if !isUniqueViolation(err) {
			return models.UserResponse{}, fmt.Errorf("insert user %q: %w", dbReq.Username, err)
		}
		// a concurrent create won the race for this username
		existing, ferr := r.FindByUsername(ctx, dbReq.Username)
		if ferr != nil {
			return models.UserResponse{}, ferr
		}
		if existing == nil {
			return models.UserResponse{}, fmt.Errorf("insert user %q: %w", dbReq.Username, ErrConflict)
		}
		return resolveExisting(r.hasher, existing, req)
	}

	return r.FindByID(ctx, id)
}

func (r *UserSQL) insert(ctx context.Context, dbReq models.UserDbRequest) (int, error) {
	var id int64
	err := r.observe(opCreate, func() error {
		if r.dialect.returning {
			return r.db.QueryRowContext(ctx, r.dialect.Rebind(createUserSQL+returningIDSQL), dbReq.Args()...).Scan(&id)
		}
		res, err := r.db.ExecContext(ctx, r.dialect.Rebind(createUserSQL), dbReq.Args()...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		return nil
	})
	return int(id), err
}

// UpdateByID replaces username, password and admin flag.
// Returns (nil, nil) if the user does not exist.
func (r *UserSQL) UpdateByID(ctx context.Context, id int, req models.UserRequest) (*models.UserResponse, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	dbReq, err := req.DbRequest(r.hasher)
	if err != nil {
		return nil, err
	}
	args := append(dbReq.Args(), id)
	if _, err := r.exec(ctx, opUpdateByID, updateUserByIDSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update user %d: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	// deleted by a concurrent request after the write
	updated, err := r.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateWithID inserts a user under a caller chosen id. The primary key and
// the username unique key are the only duplicate checks.
func (r *UserSQL) CreateWithID(ctx context.Context, id int, req models.UserRequest) (models.UserResponse, error) {
	dbReq, err := req.DbRequest(r.hasher)
	if err != nil {
		return models.UserResponse{}, err
	}
	args := append([]any{id}, dbReq.Args()...)
	if _, err := r.exec(ctx, opCreateWithID, createUserWithIDSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return models.UserResponse{}, fmt.Errorf("insert user %d: %w", id, ErrConflict)
		}
		return models.UserResponse{}, fmt.Errorf("insert user %d: %w", id, err)
	}
	if r.dialect.syncIDs != "" {
		if _, err := r.exec(ctx, opCreateWithID, r.dialect.syncIDs); err != nil {
			return models.UserResponse{}, fmt.Errorf("sync user id sequence: %w", err)
		}
	}
	return r.FindByID(ctx, id)
}

// DeleteByID fails with ErrNotFound if the user does not exist.
func (r *UserSQL) DeleteByID(ctx context.Context, id int) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	if _, err := r.exec(ctx, opDeleteByID, deleteUserByIDSQL, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// resolveExisting decides a create that hit an existing username: identical
// username, verifying password and equal admin flag return the stored user,
// anything else is a conflict.
func resolveExisting(h security.Hasher, existing *models.User, req models.UserRequest) (models.UserResponse, error) {
	if existing.Username != req.Username ||
		!h.Verify(req.Password, existing.PasswordHash, existing.Salt) ||
		existing.Admin != req.Admin {
		return models.UserResponse{}, fmt.Errorf("create user %q: %w", req.Username, ErrConflict)
	}
	return existing.Response(), nil
}
