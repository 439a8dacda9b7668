package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/opscrm-api/internal/data/database"
	"github.com/target/opscrm-api/internal/data/pgxutil"
	"github.com/target/opscrm-api/internal/domain/model"
)

// CustomerRepo provides database operations for customers.
type CustomerRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCustomerRepo creates a new CustomerRepo with real time provider.
func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const customerColumns = `id, name, email, phone, address, created_at, updated_at`

// Create inserts a new customer.
func (r *CustomerRepo) Create(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error) {
	if req == nil {
		return nil, errors.New("create customer request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.timeProvider.Now().UTC()
	out, err := pgxutil.QueryOne[model.Customer](ctx, r.DB, `
		INSERT INTO customers (name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+customerColumns,
		req.Name, req.Email, req.Phone, req.Address, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	if !validUUID(id) {
		return nil, ErrCustomerNotFound
	}
	out, err := pgxutil.QueryOne[model.Customer](ctx, r.DB,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &out, nil
}

// List returns customers ordered by name, optionally filtered by a name/email search.
func (r *CustomerRepo) List(ctx context.Context, opts model.CustomerListOptions) ([]*model.Customer, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	qo := []database.ListQueryOption{
		database.WithColumns("id", "name", "email", "phone", "address", "created_at", "updated_at"),
		database.WithOrderBy("name", sortDirAsc),
		database.WithOrderBy("id", sortDirAsc),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if pat, ok := likePattern(opts.Q); ok {
		qo = append(qo, database.WithCondition(
			database.WhereRawCond(`(name ILIKE $1 OR COALESCE(email, '') ILIKE $1)`, pat),
		))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("customers", qo...))
	out, err := pgxutil.QueryAll[model.Customer](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}
