package service

import (
	"errors"
	"fmt"

	"github.com/target/opscrm-api/internal/data"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	apperrors "github.com/target/opscrm-api/internal/errors"
)

// maxConditionalAttempts bounds how often a conditional job write is re-read and
// re-validated after losing a race.
const maxConditionalAttempts = 3

// translate converts repository sentinels into AppErrors and tags everything else with op.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, data.ErrJobNotFound):
		return apperrors.NotFound("job not found")
	case errors.Is(err, data.ErrTemplateNotFound):
		return apperrors.NotFound("checklist template not found")
	case errors.Is(err, data.ErrCustomerNotFound):
		return apperrors.NotFound("customer not found")
	case errors.Is(err, data.ErrUserNotFound):
		return apperrors.NotFound("staff member not found")
	case errors.Is(err, data.ErrTemplateNameExists):
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeConflict,
			Message: "a checklist template with this name already exists for the service type",
			Field:   "name",
			Cause:   err,
		}
	case errors.Is(err, data.ErrJobInProgress):
		return apperrors.Conflict("job is in progress and cannot be deleted")
	case errors.Is(err, data.ErrStatusChanged):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, "job was modified concurrently; reload and retry")
	}
	return fmt.Errorf("%s: %w", op, apperrors.MapDBError(err))
}

func requireActor(actor domainauth.Actor) error {
	if !actor.Authenticated() {
		return apperrors.Unauthenticated("authentication required")
	}
	return nil
}

func requireAdmin(actor domainauth.Actor, action string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperrors.Unauthorizedf("only admins may %s", action)
	}
	return nil
}
