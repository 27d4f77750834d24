package chatstream

import (
	"trade-intel-be/internal/entity"
	"trade-intel-be/pkg/generation"
)

// Outcome classifies how the answer workstream ended. The merge loop
// branches on it instead of inspecting errors across goroutines.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
)

// generationDone is the answer workstream's final report.
type generationDone struct {
	outcome Outcome
	result  *generation.Result
	err     error
}

// detailDone is the preparer workstream's final report. The preparer never
// hard-fails; a failure inside it surfaces as zero buttons.
type detailDone struct {
	buttons []entity.DetailButton
}
