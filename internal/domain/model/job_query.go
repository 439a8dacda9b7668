//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

// JobListOptions groups parameters for listing jobs with optional filters.
type JobListOptions struct {
	Status         *JobStatus // exact match; COMPLETED also matches legacy DONE rows
	AssignedUserID *string
	CustomerID     *string
	ServiceType    *string
	Q              *string // substring match on title (ILIKE)
	Sort           string  // "created_at", "scheduled_for", "status", "title"
	Dir            string  // "asc", "desc"
	Limit          int
	Offset         int
}
