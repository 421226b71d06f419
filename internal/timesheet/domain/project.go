package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectArchived  ProjectStatus = "ARCHIVED"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

// ErrUnknownProjectStatus is returned when parsing a project status that does not exist.
var ErrUnknownProjectStatus = errors.New("unknown project status")

// ParseProjectStatus converts a stored or requested value into a ProjectStatus.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch ProjectStatus(s) {
	case ProjectActive, ProjectArchived, ProjectCompleted:
		return ProjectStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProjectStatus, s)
	}
}

// AcceptsTime reports whether new time may be logged against the project.
func (s ProjectStatus) AcceptsTime() bool {
	return s == ProjectActive
}

// Prefixes of generated project and workplace codes.
const (
	CodePrefixProject   = "PRO"
	CodePrefixWorkplace = "LOC"
)

// FormatCode renders the seq-th code of a prefix, e.g. PRO001.
func FormatCode(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// ProjectHours is the logged effort on one project.
type ProjectHours struct {
	TotalHours    float64 `json:"total_hours"`
	EmployeeCount int     `json:"employee_count"`
}

// MemberHours is one employee's share of a project.
type MemberHours struct {
	UserID     string
	TotalHours float64
	EntryCount int
	LastEntry  time.Time
}

// SummarizeProjects totals the live records per project. Rejected records
// count nowhere, as in Summarize.
func SummarizeProjects(records []Record) map[string]ProjectHours {
	out := make(map[string]ProjectHours)
	users := make(map[string]map[string]bool)
	for _, rec := range records {
		if !rec.Status.IsLive() {
			continue
		}
		h := out[rec.ProjectID]
		h.TotalHours += rec.Hours.Total
		if users[rec.ProjectID] == nil {
			users[rec.ProjectID] = make(map[string]bool)
		}
		if !users[rec.ProjectID][rec.UserID] {
			users[rec.ProjectID][rec.UserID] = true
			h.EmployeeCount++
		}
		out[rec.ProjectID] = h
	}
	return out
}

// TeamHours groups the live records by employee, most hours first. Ties
// are ordered by user ID.
func TeamHours(records []Record) []MemberHours {
	byUser := make(map[string]*MemberHours)
	for _, rec := range records {
		if !rec.Status.IsLive() {
			continue
		}
		m := byUser[rec.UserID]
		if m == nil {
			m = &MemberHours{UserID: rec.UserID}
			byUser[rec.UserID] = m
		}
		m.TotalHours += rec.Hours.Total
		m.EntryCount++
		if rec.Date.After(m.LastEntry) {
			m.LastEntry = rec.Date
		}
	}

	out := make([]MemberHours, 0, len(byUser))
	for _, m := range byUser {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalHours != out[j].TotalHours {
			return out[i].TotalHours > out[j].TotalHours
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
