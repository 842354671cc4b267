package model

type WriteOp string

const (
	OpInsert WriteOp = "insert"
	OpUpdate WriteOp = "update"
)

// WriteOutcome classifies the result of one row of a bulk write.
type WriteOutcome string

const (
	OutcomeApplied   WriteOutcome = "applied"
	OutcomeConflict  WriteOutcome = "conflict"
	OutcomeFailed    WriteOutcome = "failed"
	OutcomeAbandoned WriteOutcome = "abandoned"
)

type StudentWrite struct {
	Op      WriteOp
	Student Student
}

type TeacherWrite struct {
	Op      WriteOp
	Teacher Teacher
}

// WriteResult is the per-row result of a bulk write; Index points into the submitted slice.
type WriteResult struct {
	Index   int
	Op      WriteOp
	ID      string
	Outcome WriteOutcome
	Err     error
}
