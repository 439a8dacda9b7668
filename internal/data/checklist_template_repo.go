package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/opscrm-api/internal/data/database"
	"github.com/target/opscrm-api/internal/data/pgxutil"
	"github.com/target/opscrm-api/internal/domain/model"
)

// ChecklistTemplateRepo provides database operations for checklist templates.
type ChecklistTemplateRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewChecklistTemplateRepo creates a new ChecklistTemplateRepo with real time provider.
func NewChecklistTemplateRepo(db *sql.DB) *ChecklistTemplateRepo {
	return &ChecklistTemplateRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewChecklistTemplateRepoWithTimeProvider creates a repo with a custom time provider (useful for tests).
func NewChecklistTemplateRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ChecklistTemplateRepo {
	return &ChecklistTemplateRepo{DB: db, timeProvider: tp}
}

const templateColumns = `id, name, service_type, description, items, is_active, created_at, updated_at`

func templateColumnList() []string {
	return []string{"id", "name", "service_type", "description", "items", "is_active", "created_at", "updated_at"}
}

// Create inserts a new active template.
func (r *ChecklistTemplateRepo) Create(
	ctx context.Context,
	req *model.CreateChecklistTemplateRequest,
) (*model.ChecklistTemplate, error) {
	if req == nil {
		return nil, errors.New("create checklist template request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	now := r.timeProvider.Now().UTC()
	out, err := pgxutil.QueryOne[model.ChecklistTemplate](ctx, r.DB, `
		INSERT INTO checklist_templates (name, service_type, description, items, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, TRUE, $5, $5)
		RETURNING `+templateColumns,
		req.Name, req.ServiceType, req.Description, string(items), now,
	)
	if err != nil {
		return nil, r.mapWriteErr(err)
	}
	return &out, nil
}

// GetByID retrieves a template by ID.
func (r *ChecklistTemplateRepo) GetByID(ctx context.Context, id string) (*model.ChecklistTemplate, error) {
	if !validUUID(id) {
		return nil, ErrTemplateNotFound
	}
	return r.getOne(ctx, `SELECT `+templateColumns+` FROM checklist_templates WHERE id = $1`, id)
}

// GetByNameAndServiceType looks up the template occupying a (name, service_type) slot.
func (r *ChecklistTemplateRepo) GetByNameAndServiceType(
	ctx context.Context,
	name, serviceType string,
) (*model.ChecklistTemplate, error) {
	return r.getOne(ctx,
		`SELECT `+templateColumns+` FROM checklist_templates WHERE name = $1 AND service_type = $2`,
		strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(serviceType)),
	)
}

// ListActiveByServiceType returns active templates for a service type ordered by name.
func (r *ChecklistTemplateRepo) ListActiveByServiceType(
	ctx context.Context,
	serviceType string,
) ([]*model.ChecklistTemplate, error) {
	out, err := pgxutil.QueryAll[model.ChecklistTemplate](ctx, r.DB, `
		SELECT `+templateColumns+`
		FROM checklist_templates
		WHERE service_type = $1 AND is_active
		ORDER BY name ASC, id`,
		strings.ToLower(strings.TrimSpace(serviceType)),
	)
	if err != nil {
		return nil, fmt.Errorf("list templates by service type: %w", err)
	}
	return out, nil
}

// List retrieves templates with optional filters and sorting.
func (r *ChecklistTemplateRepo) List(
	ctx context.Context,
	opts model.TemplateListOptions,
) ([]*model.ChecklistTemplate, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	qo := []database.ListQueryOption{
		database.WithColumns(templateColumnList()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.ServiceType != nil && strings.TrimSpace(*opts.ServiceType) != "" {
		qo = append(qo, database.WithCondition(
			database.WhereCond("service_type", database.Equal, strings.ToLower(strings.TrimSpace(*opts.ServiceType))),
		))
	}
	if opts.Active != nil {
		qo = append(qo, database.WithCondition(database.WhereCond("is_active", database.Equal, *opts.Active)))
	}
	if pat, ok := likePattern(opts.Q); ok {
		qo = append(qo, database.WithCondition(
			database.WhereRawCond(`(name ILIKE $1 OR COALESCE(description, '') ILIKE $1)`, pat),
		))
	}
	col, dir := resolveSort(map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}, opts.Sort, opts.Dir, "name", sortDirAsc)
	qo = append(qo, database.WithOrderBy(col, dir), database.WithOrderBy("id", dir))

	query, args := database.BuildListQuery(database.NewListQueryOptions("checklist_templates", qo...))
	out, err := pgxutil.QueryAll[model.ChecklistTemplate](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

// Update applies a validated partial update.
func (r *ChecklistTemplateRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateChecklistTemplateRequest,
) (*model.ChecklistTemplate, error) {
	if !validUUID(id) {
		return nil, ErrTemplateNotFound
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var set setClause
	if req.Name != nil {
		set.add("name", *req.Name)
	}
	if req.ServiceType != nil {
		set.add("service_type", *req.ServiceType)
	}
	if req.Description != nil {
		if *req.Description == "" {
			set.addRaw("description = NULL")
		} else {
			set.add("description", *req.Description)
		}
	}
	if req.Items != nil {
		items, err := json.Marshal(req.Items)
		if err != nil {
			return nil, fmt.Errorf("encode items: %w", err)
		}
		set.addRaw("items = " + set.bind(string(items)) + "::jsonb")
	}
	if req.IsActive != nil {
		set.add("is_active", *req.IsActive)
	}
	set.add("updated_at", r.timeProvider.Now().UTC())

	query := "UPDATE checklist_templates SET " + set.String() +
		" WHERE id = " + set.bind(id) + " RETURNING " + templateColumns
	out, err := pgxutil.QueryOne[model.ChecklistTemplate](ctx, r.DB, query, set.args...)
	if err != nil {
		return nil, r.mapWriteErr(err)
	}
	return &out, nil
}

// DeleteOrDeactivate hard-deletes the template when no job references it and otherwise
// marks it inactive. The row is locked for the duration so a concurrent attach cannot slip
// in between the count and the delete.
func (r *ChecklistTemplateRepo) DeleteOrDeactivate(ctx context.Context, id string) (*model.TemplateDeleteResult, error) {
	if !validUUID(id) {
		return nil, ErrTemplateNotFound
	}
	var res model.TemplateDeleteResult
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx,
			`SELECT id FROM checklist_templates WHERE id = $1 FOR UPDATE`, id,
		).Scan(&locked); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM jobs WHERE checklist_template_id = $1`, id,
		).Scan(&res.ReferenceCount); err != nil {
			return fmt.Errorf("count template references: %w", err)
		}

		if res.ReferenceCount == 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM checklist_templates WHERE id = $1`, id); err != nil {
				return fmt.Errorf("delete template: %w", err)
			}
			res.Deleted = true
			return nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE checklist_templates SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
			id, r.timeProvider.Now().UTC(),
		); err != nil {
			return fmt.Errorf("deactivate template: %w", err)
		}
		res.Deactivated = true
		return nil
	}})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &res, nil
}

// CountJobReferences returns how many jobs currently point at the template.
func (r *ChecklistTemplateRepo) CountJobReferences(ctx context.Context, id string) (int, error) {
	if !validUUID(id) {
		return 0, nil
	}
	var n int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE checklist_template_id = $1`, id).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count template references: %w", err)
	}
	return n, nil
}

func (r *ChecklistTemplateRepo) getOne(ctx context.Context, q string, args ...any) (*model.ChecklistTemplate, error) {
	out, err := pgxutil.QueryOne[model.ChecklistTemplate](ctx, r.DB, q, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get checklist template: %w", err)
	}
	return &out, nil
}

func (r *ChecklistTemplateRepo) mapWriteErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTemplateNotFound
	}
	if isUniqueViolation(err) {
		return ErrTemplateNameExists
	}
	return err
}
