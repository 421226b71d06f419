package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"

	"github.com/tyotrack/tyotrack-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23514": // check_violation
		return mapCheckConstraint(pqErr)

	case "23505": // unique_violation
		return errors.Conflict("a record with these values already exists")

	case "23503": // foreign_key_violation
		return errors.BadRequest("referenced record does not exist")

	case "23502": // not_null_violation
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	case "40001", "40P01": // serialization_failure, deadlock_detected
		return errors.Conflict("concurrent update, please retry")

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: PENDING, APPROVED, REJECTED",
		})

	case strings.Contains(constraint, "minute_range"):
		return errors.Validation(map[string]string{
			"start_time": "must not be after end_time",
		})

	case strings.Contains(constraint, "projects_state_allowed"):
		return errors.Validation(map[string]string{
			"status": "must be one of: ACTIVE, ARCHIVED, COMPLETED",
		})

	case strings.Contains(constraint, "projects_dates_ordered"):
		return errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})

	case strings.Contains(constraint, "estimate_nonnegative"):
		return errors.Validation(map[string]string{
			"estimated_hours": "must not be negative",
		})

	case strings.Contains(constraint, "backdate_nonnegative"):
		return errors.Validation(map[string]string{
			"backdate_limit_days": "must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
