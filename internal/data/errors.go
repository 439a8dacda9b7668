package data

import "errors"

// Shared sentinel errors for data-layer repositories. Services translate them into the
// application error taxonomy.
var (
	ErrJobNotFound        = errors.New("job not found")
	ErrTemplateNotFound   = errors.New("checklist template not found")
	ErrTemplateNameExists = errors.New("checklist template name already exists for service type")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrUserNotFound       = errors.New("user not found")
	// ErrStatusChanged means a conditional job write matched no row because the stored status
	// moved after it was read.
	ErrStatusChanged = errors.New("job status changed concurrently")
	// ErrJobInProgress is returned when deleting a job that is being worked on.
	ErrJobInProgress = errors.New("job is in progress and cannot be deleted")
)
