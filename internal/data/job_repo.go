package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/opscrm-api/internal/data/database"
	"github.com/target/opscrm-api/internal/data/pgxutil"
	"github.com/target/opscrm-api/internal/domain/model"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for jobs.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "job_repo"),
	}
}

const jobColumns = `
  id,
  customer_id,
  title,
  service_type,
  notes,
  scheduled_for,
  status,
  assigned_user_id,
  completed_at,
  checklist_template_id,
  item_status,
  checklist_completed_at,
  created_at,
  updated_at`

func jobColumnList() []string {
	return []string{
		"id", "customer_id", "title", "service_type", "notes", "scheduled_for", "status",
		"assigned_user_id", "completed_at", "checklist_template_id", "item_status",
		"checklist_completed_at", "created_at", "updated_at",
	}
}

// Create inserts a job in the given initial status.
func (r *JobRepo) Create(
	ctx context.Context,
	req *model.CreateJobRequest,
	status model.JobStatus,
) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if !validUUID(req.CustomerID) {
		return nil, ErrCustomerNotFound
	}

	now := r.timeProvider.Now().UTC()
	job, err := pgxutil.QueryOne[model.Job](ctx, r.DB, `
		INSERT INTO jobs (
			customer_id, title, service_type, notes, scheduled_for, status, assigned_user_id,
			item_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '{}'::jsonb, $8, $8)
		RETURNING `+jobColumns,
		req.CustomerID,
		req.Title,
		req.ServiceType,
		req.Notes,
		req.ScheduledFor,
		status,
		req.AssignedUserID,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

// GetByID retrieves a job by ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if !validUUID(id) {
		return nil, ErrJobNotFound
	}
	job, err := pgxutil.QueryOne[model.Job](ctx, r.DB, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// List retrieves jobs with optional filters and sorting.
func (r *JobRepo) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	query, args := database.BuildListQuery(r.buildListQueryOptions(opts))
	jobs, err := pgxutil.QueryAll[model.Job](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (r *JobRepo) buildListQueryOptions(opts model.JobListOptions) *database.ListQueryOptions {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	qo := []database.ListQueryOption{
		database.WithColumns(jobColumnList()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.Status != nil {
		st := opts.Status.Canonical()
		if st == model.JobStatusCompleted {
			qo = append(qo, database.WithCondition(database.WhereCond("status", database.In,
				[]string{string(model.JobStatusCompleted), string(model.JobStatusDone)})))
		} else {
			qo = append(qo, database.WithCondition(database.WhereCond("status", database.Equal, string(st))))
		}
	}
	if opts.AssignedUserID != nil && strings.TrimSpace(*opts.AssignedUserID) != "" {
		qo = append(qo, database.WithCondition(
			database.WhereCond("assigned_user_id", database.Equal, strings.TrimSpace(*opts.AssignedUserID)),
		))
	}
	if opts.CustomerID != nil && strings.TrimSpace(*opts.CustomerID) != "" {
		qo = append(qo, database.WithCondition(
			database.WhereCond("customer_id", database.Equal, strings.TrimSpace(*opts.CustomerID)),
		))
	}
	if opts.ServiceType != nil && strings.TrimSpace(*opts.ServiceType) != "" {
		qo = append(qo, database.WithCondition(
			database.WhereCond("service_type", database.Equal, strings.ToLower(strings.TrimSpace(*opts.ServiceType))),
		))
	}
	if pat, ok := likePattern(opts.Q); ok {
		qo = append(qo, database.WithCondition(database.WhereCond("title", database.ILike, pat)))
	}

	col, dir := resolveSort(map[string]string{
		"created_at":    "created_at",
		"scheduled_for": "scheduled_for",
		"status":        "status",
		"title":         "title",
		"updated_at":    "updated_at",
	}, opts.Sort, opts.Dir, "created_at", sortDirDesc)
	qo = append(qo, database.WithOrderBy(col, dir), database.WithOrderBy("id", dir))
	return database.NewListQueryOptions("jobs", qo...)
}

// Update applies w only if the stored status still equals w.ExpectedStatus.
// It returns ErrStatusChanged when the row exists but its status moved, and
// ErrJobNotFound when the row is gone.
func (r *JobRepo) Update(ctx context.Context, id string, w model.JobWrite) (*model.Job, error) {
	if !validUUID(id) {
		return nil, ErrJobNotFound
	}

	var set setClause
	if w.Title != nil {
		set.add("title", *w.Title)
	}
	if w.Notes != nil {
		set.add("notes", *w.Notes)
	}
	if w.ScheduledFor != nil {
		set.add("scheduled_for", w.ScheduledFor.UTC())
	}
	if w.AssignedUserID != nil {
		set.add("assigned_user_id", *w.AssignedUserID)
	}
	if w.Status != nil {
		set.add("status", string(*w.Status))
	}
	if w.CompletedAt != nil {
		set.add("completed_at", w.CompletedAt.UTC())
	}
	if set.empty() {
		return r.GetByID(ctx, id)
	}
	set.add("updated_at", r.timeProvider.Now().UTC())

	query := "UPDATE jobs SET " + set.String() +
		" WHERE id = " + set.bind(id) +
		" AND status = " + set.bind(string(w.ExpectedStatus)) +
		" RETURNING " + jobColumns

	job, err := pgxutil.QueryOne[model.Job](ctx, r.DB, query, set.args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missOrChanged(ctx, id)
		}
		return nil, fmt.Errorf("update job: %w", err)
	}
	return &job, nil
}

// UpdateChecklist replaces the job's checklist columns. A nil ItemStatus is stored as {}.
func (r *JobRepo) UpdateChecklist(ctx context.Context, id string, w model.ChecklistWrite) (*model.Job, error) {
	if !validUUID(id) {
		return nil, ErrJobNotFound
	}
	items := w.ItemStatus
	if items == nil {
		items = map[string]bool{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode item status: %w", err)
	}

	job, err := pgxutil.QueryOne[model.Job](ctx, r.DB, `
		UPDATE jobs
		SET checklist_template_id = $1,
		    item_status = $2::jsonb,
		    checklist_completed_at = $3,
		    updated_at = $4
		WHERE id = $5
		RETURNING `+jobColumns,
		w.TemplateID,
		string(raw),
		w.ChecklistCompletedAt,
		r.timeProvider.Now().UTC(),
		id,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("update job checklist: %w", err)
	}
	return &job, nil
}

// Delete removes a job unless it is IN_PROGRESS. It returns ErrJobInProgress when the row
// exists but is being worked on.
func (r *JobRepo) Delete(ctx context.Context, id string) (bool, error) {
	if !validUUID(id) {
		return false, nil
	}
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND status <> $2`,
			id, string(model.JobStatusInProgress))
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	switch err := r.missOrChanged(ctx, id); {
	case errors.Is(err, ErrJobNotFound):
		return false, nil
	case errors.Is(err, ErrStatusChanged):
		return false, ErrJobInProgress
	default:
		return false, err
	}
}

// missOrChanged distinguishes a vanished row from one whose guard no longer matches.
func (r *JobRepo) missOrChanged(ctx context.Context, id string) error {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists)
	})
	if err != nil {
		return fmt.Errorf("check job existence: %w", err)
	}
	if !exists {
		return ErrJobNotFound
	}
	return ErrStatusChanged
}
