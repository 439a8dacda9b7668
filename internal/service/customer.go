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

// CustomerServiceOptions groups dependencies for CustomerService.
type CustomerServiceOptions struct {
	Repo   core.CustomerRepository // Required: customer repository
	Logger *slog.Logger            // Optional: structured logger
}

// CustomerService manages the customer registry jobs are booked against.
type CustomerService struct {
	repo   core.CustomerRepository
	logger *slog.Logger
}

// NewCustomerService constructs a new CustomerService.
func NewCustomerService(opts CustomerServiceOptions) (*CustomerService, error) {
	if opts.Repo == nil {
		return nil, errors.New("CustomerRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerService{repo: opts.Repo, logger: logger.With("component", "customer_service")}, nil
}

// Create registers a customer. Admin only.
func (s *CustomerService) Create(
	ctx context.Context,
	actor domainauth.Actor,
	req *model.CreateCustomerRequest,
) (*model.Customer, error) {
	if err := requireAdmin(actor, "create customers"); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	c, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, translate("create customer", err)
	}
	s.logger.InfoContext(ctx, "customer created", "customer_id", c.ID, "actor_id", actor.ID)
	return c, nil
}

// GetByID returns a customer.
func (s *CustomerService) GetByID(ctx context.Context, actor domainauth.Actor, id string) (*model.Customer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get customer", err)
	}
	return c, nil
}

// List returns customers matching opts.
func (s *CustomerService) List(
	ctx context.Context,
	actor domainauth.Actor,
	opts model.CustomerListOptions,
) ([]*model.Customer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, translate("list customers", err)
	}
	return out, nil
}
