package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
	"github.com/elevix/approval-flow/internal/infrastructure/persistence/sqlite"
	"github.com/elevix/approval-flow/pkg/utils"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository and port.DirectoryResolver
// over the directory table. E-mail comparison is case-insensitive.
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create creates a new directory entry
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if err := utils.ValidateEmail(u.Email); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrInvalidInput, err)
	}

	query := `INSERT INTO users (email, display_name) VALUES (?, ?)`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, strings.ToLower(u.Email), u.DisplayName)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	u.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT id, email, display_name, created_at FROM users WHERE id = ?`
	return r.scanOne(ctx, query, id)
}

// GetByEmail retrieves a user by e-mail, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT id, email, display_name, created_at FROM users WHERE email = ?`
	return r.scanOne(ctx, query, strings.ToLower(email))
}

// ResolveID implements port.DirectoryResolver
func (r *UserRepository) ResolveID(ctx context.Context, email string) (int64, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, fmt.Errorf("%w: user %s", workflow.ErrNotFound, email)
	}
	return u.ID, nil
}

// ResolveEmail implements port.DirectoryResolver
func (r *UserRepository) ResolveEmail(ctx context.Context, userID int64) (string, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", fmt.Errorf("%w: user %d", workflow.ErrNotFound, userID)
	}
	return u.Email, nil
}

func (r *UserRepository) scanOne(ctx context.Context, query string, arg interface{}) (*entity.User, error) {
	var u entity.User
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Verify interface compliance
var (
	_ port.UserRepository    = (*UserRepository)(nil)
	_ port.DirectoryResolver = (*UserRepository)(nil)
)
