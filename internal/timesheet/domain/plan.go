package domain

import "time"

// ShiftInput is a shift as submitted by an employee.
type ShiftInput struct {
	Submission
	Date      time.Time
	StartTime string
	EndTime   string
}

// Environment is everything a submission is judged against. Today is the
// only clock the core reads.
type Environment struct {
	Boundaries  ShiftBoundaries
	Policy      Policy
	Today       time.Time
	AutoApprove bool
	Existing    []ExistingEntry
}

// Plan is the outcome of running a shift through split, classify, validate
// and assemble. Records is nil when the submission was rejected.
type Plan struct {
	Segments   []ClassifiedSegment
	Validation ValidationResult
	Records    []Record
}

// Accepted reports whether Records may be committed.
func (p Plan) Accepted() bool {
	return p.Validation.OK()
}

// IsSplit reports whether the shift crossed midnight.
func (p Plan) IsSplit() bool {
	return len(p.Segments) > 1
}

// BuildPlan runs the whole core on one shift. The only error is an invalid
// clock value; business-rule rejections are reported on the plan.
func BuildPlan(in ShiftInput, env Environment) (Plan, error) {
	segments, err := SplitShift(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Segments: ClassifyAll(segments, env.Boundaries)}
	plan.Validation = Validate(segments, env.Today, env.Policy, env.Existing)
	if !plan.Validation.OK() {
		return plan, nil
	}

	plan.Records = Assemble(in.Submission, plan.Segments, env.AutoApprove)
	MarkOverlaps(plan.Records, plan.Validation)
	return plan, nil
}
