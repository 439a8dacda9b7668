package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/target/opscrm-api/internal/core"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/model"
	apperrors "github.com/target/opscrm-api/internal/errors"
)

// StaffServiceOptions groups dependencies for StaffService.
type StaffServiceOptions struct {
	Repo   core.UserRepository // Required: user repository
	Logger *slog.Logger        // Optional: structured logger
}

// StaffService manages staff records. Jobs can only be assigned to a known staff member.
type StaffService struct {
	repo   core.UserRepository
	logger *slog.Logger
}

// NewStaffService constructs a new StaffService.
func NewStaffService(opts StaffServiceOptions) (*StaffService, error) {
	if opts.Repo == nil {
		return nil, errors.New("UserRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StaffService{repo: opts.Repo, logger: logger.With("component", "staff_service")}, nil
}

// Upsert creates or replaces a staff record. Admin only.
func (s *StaffService) Upsert(
	ctx context.Context,
	actor domainauth.Actor,
	req *model.UpsertUserRequest,
) (*model.User, error) {
	if err := requireAdmin(actor, "manage staff"); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if _, ok := domainauth.ParseRole(req.Role); !ok {
		return nil, apperrors.ValidationField("role", "unknown role: "+req.Role)
	}
	u, err := s.repo.Upsert(ctx, req)
	if err != nil {
		return nil, translate("upsert staff", err)
	}
	s.logger.InfoContext(ctx, "staff member saved", "user_id", u.ID, "role", u.Role, "actor_id", actor.ID)
	return u, nil
}

// SyncFromSession records the signed-in user so they can be assigned work. It runs after a
// successful login and never changes an existing member's name or email to blanks.
func (s *StaffService) SyncFromSession(ctx context.Context, sess domainauth.Session) error {
	if sess.UserID == "" || !sess.Role.Valid() || sess.IsGuest() {
		return nil
	}
	name := sess.FirstName
	if sess.LastName != "" {
		if name != "" {
			name += " "
		}
		name += sess.LastName
	}
	if name == "" {
		name = sess.UserID
	}
	req := &model.UpsertUserRequest{ID: sess.UserID, Name: name, Role: string(sess.Role)}
	if sess.Email != "" {
		email := sess.Email
		req.Email = &email
	}
	if err := req.Validate(); err != nil {
		// An IdP email we cannot parse is dropped rather than blocking login.
		req.Email = nil
		if err = req.Validate(); err != nil {
			return apperrors.Validation(err.Error())
		}
	}
	if _, err := s.repo.Upsert(ctx, req); err != nil {
		return translate("sync staff", err)
	}
	return nil
}

// GetByID returns a staff member.
func (s *StaffService) GetByID(ctx context.Context, actor domainauth.Actor, id string) (*model.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get staff", err)
	}
	return u, nil
}

// List returns staff matching opts.
func (s *StaffService) List(
	ctx context.Context,
	actor domainauth.Actor,
	opts model.UserListOptions,
) ([]*model.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if opts.Role != nil {
		r, ok := domainauth.ParseRole(*opts.Role)
		if !ok {
			return nil, apperrors.ValidationField("role", "unknown role: "+*opts.Role)
		}
		role := string(r)
		opts.Role = &role
	}
	out, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, translate("list staff", err)
	}
	return out, nil
}
