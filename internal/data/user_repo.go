package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/opscrm-api/internal/data/database"
	"github.com/target/opscrm-api/internal/data/pgxutil"
	"github.com/target/opscrm-api/internal/domain/model"
)

// UserRepo stores staff records.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const userColumns = `id, name, email, role, created_at, updated_at`

// Upsert creates the user or replaces its name, email and role.
func (r *UserRepo) Upsert(ctx context.Context, req *model.UpsertUserRequest) (*model.User, error) {
	if req == nil {
		return nil, errors.New("upsert user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.timeProvider.Now().UTC()
	out, err := pgxutil.QueryOne[model.User](ctx, r.DB, `
		INSERT INTO users (id, name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		req.ID, req.Name, req.Email, req.Role, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	out, err := pgxutil.QueryOne[model.User](ctx, r.DB, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &out, nil
}

// List returns staff ordered by name.
func (r *UserRepo) List(ctx context.Context, opts model.UserListOptions) ([]*model.User, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	qo := []database.ListQueryOption{
		database.WithColumns("id", "name", "email", "role", "created_at", "updated_at"),
		database.WithOrderBy("name", sortDirAsc),
		database.WithOrderBy("id", sortDirAsc),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.Role != nil && strings.TrimSpace(*opts.Role) != "" {
		qo = append(qo, database.WithCondition(
			database.WhereCond("role", database.Equal, strings.ToLower(strings.TrimSpace(*opts.Role))),
		))
	}
	if pat, ok := likePattern(opts.Q); ok {
		qo = append(qo, database.WithCondition(
			database.WhereRawCond(`(name ILIKE $1 OR COALESCE(email, '') ILIKE $1)`, pat),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("users", qo...))
	out, err := pgxutil.QueryAll[model.User](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}
