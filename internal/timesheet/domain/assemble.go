package domain

import (
	"errors"
	"fmt"
	"time"
)

// Submission carries the references passed through unchanged onto every
// record of one logged shift.
type Submission struct {
	UserID      string
	CompanyID   string
	ProjectID   string
	WorkplaceID *string
	Description *string
}

// Record is a time entry ready to be stored. ID and ParentEntryID are empty
// until Commit assigns them.
type Record struct {
	ID            string
	UserID        string
	CompanyID     string
	ProjectID     string
	WorkplaceID   *string
	Description   *string
	Date          time.Time
	StartTime     string
	EndTime       string
	StartMinutes  int
	EndMinutes    int
	Hours         ClassifiedHours
	IsSplit       bool
	Role          SegmentRole
	ParentEntryID *string
	HasOverlap    bool
	Status        Status
}

// Assemble zips classified segments into records. Every record gets the
// same initial status. Output order follows the segments.
func Assemble(sub Submission, classified []ClassifiedSegment, autoApprove bool) []Record {
	status := InitialStatus(autoApprove)
	records := make([]Record, len(classified))

	for i, c := range classified {
		records[i] = Record{
			UserID:       sub.UserID,
			CompanyID:    sub.CompanyID,
			ProjectID:    sub.ProjectID,
			WorkplaceID:  sub.WorkplaceID,
			Description:  sub.Description,
			Date:         c.Date,
			StartTime:    FormatClock(c.StartMinutes),
			EndTime:      FormatClock(c.EndMinutes),
			StartMinutes: c.StartMinutes,
			EndMinutes:   c.EndMinutes,
			Hours:        c.Hours,
			IsSplit:      c.IsSplit,
			Role:         c.Role,
			Status:       status,
		}
	}

	return records
}

// MarkOverlaps flags the records whose segment clashed with a live entry.
func MarkOverlaps(records []Record, result ValidationResult) {
	for i := range records {
		records[i].HasOverlap = result.OverlapsSegment(i)
	}
}

// ErrEmptyID is returned by Commit when the store hands back no identity.
var ErrEmptyID = errors.New("store returned empty entry id")

// Commit hands each record to create in order. The identity assigned to the
// first part of a split shift becomes the second part's ParentEntryID.
// Commit stops at the first error; the caller owns rollback.
func Commit(records []Record, create func(*Record) (string, error)) error {
	var firstPartID string

	for i := range records {
		rec := &records[i]
		if rec.Role == RoleSecondPart {
			if firstPartID == "" {
				return fmt.Errorf("second part at index %d has no first part", i)
			}
			parent := firstPartID
			rec.ParentEntryID = &parent
		}

		id, err := create(rec)
		if err != nil {
			return err
		}
		if id == "" {
			return ErrEmptyID
		}
		rec.ID = id

		if rec.Role == RoleFirstPart {
			firstPartID = id
		}
	}

	return nil
}

// Totals sums the hours of the records.
func Totals(records []Record) ClassifiedHours {
	var h ClassifiedHours
	for _, r := range records {
		h = h.Add(r.Hours)
	}
	return h
}
