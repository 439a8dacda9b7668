package job

import (
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/domain/model"
)

// CanMutateJob reports whether actor may change j's status or checklist.
// Admins always may. Otherwise the actor must be the assignee and hold a staff role;
// an unassigned job is admin-only. This says nothing about whether the change itself is legal.
func CanMutateJob(actor domainauth.Actor, j *model.Job) bool {
	if j == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.ID == "" || !j.IsAssigned() {
		return false
	}
	return actor.ID == *j.AssignedUserID && actor.Role.IsStaff()
}

// CanViewMutationControl decides whether interactive controls are offered for j.
// It must stay identical to CanMutateJob.
func CanViewMutationControl(actor domainauth.Actor, j *model.Job) bool {
	return CanMutateJob(actor, j)
}
