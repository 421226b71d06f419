// Package permissions checks dotted permission strings with wildcard support.
//
// Permission format:
//   - "*" full access
//   - "timesheet.*" every action under timesheet
//   - "timesheet.entries.approve" one action
package permissions

import (
	"strings"
)

// Roles a user can hold within a company.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleEmployee   = "EMPLOYEE"
)

// Timesheet permissions
const (
	EntriesCreate   = "timesheet.entries.create"
	EntriesRead     = "timesheet.entries.read"
	EntriesReadAll  = "timesheet.entries.read_all"
	EntriesApprove  = "timesheet.entries.approve"
	SettingsRead    = "timesheet.settings.read"
	SettingsWrite   = "timesheet.settings.write"
	StatsRead       = "timesheet.stats.read"
	UserSettingsSet = "timesheet.user_settings.write"
	ProjectsRead    = "timesheet.projects.read"
	ProjectsManage  = "timesheet.projects.manage"
)

var rolePermissions = map[string][]string{
	RoleSuperAdmin: {"*"},
	RoleAdmin:      {"timesheet.*"},
	RoleEmployee: {
		EntriesCreate,
		EntriesRead,
		SettingsRead,
		StatsRead,
		ProjectsRead,
	},
}

// ForRole returns the permissions granted by a role. Unknown roles get none.
func ForRole(role string) []string {
	return rolePermissions[strings.ToUpper(role)]
}

// Effective merges the role's permissions with any carried in the token.
func Effective(role string, granted []string) []string {
	return MergePermissions(ForRole(role), granted)
}

// HasPermission checks if the user's permissions include the required permission.
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}

// MergePermissions merges permission sets, dropping duplicates and keeping
// first-seen order.
func MergePermissions(sets ...[]string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, set := range sets {
		for _, p := range set {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			result = append(result, p)
		}
	}

	return result
}
