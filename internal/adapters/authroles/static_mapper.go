// Package authroles maps identity provider groups onto application roles.
package authroles

import (
	"strings"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
)

// StaticRoleMapper maps groups by configured membership. Group names compare
// case-insensitively. Admin takes precedence; among staff groups operations beats
// qc_manager, which beats training. A user in no configured group is a guest.
type StaticRoleMapper struct {
	AdminGroup      string
	OperationsGroup string
	QCManagerGroup  string
	TrainingGroup   string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	member := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		member[normalize(g)] = struct{}{}
	}

	for _, rule := range []struct {
		group string
		role  domainauth.Role
	}{
		{m.AdminGroup, domainauth.RoleAdmin},
		{m.OperationsGroup, domainauth.RoleOperations},
		{m.QCManagerGroup, domainauth.RoleQCManager},
		{m.TrainingGroup, domainauth.RoleTraining},
	} {
		g := normalize(rule.group)
		if g == "" {
			continue
		}
		if _, ok := member[g]; ok {
			return rule.role
		}
	}
	return domainauth.RoleGuest
}

func normalize(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}
