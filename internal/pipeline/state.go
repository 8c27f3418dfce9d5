package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

// TransitionFunc observes every state change of a run.
type TransitionFunc func(documentID uuid.UUID, from, to constants.PipelineState)

var transitions = map[constants.PipelineState][]constants.PipelineState{
	constants.StateNotStarted:          {constants.StateClassifying, constants.StateFailed},
	constants.StateClassifying:         {constants.StateExtractingPolicy, constants.StateFailed},
	constants.StateExtractingPolicy:    {constants.StateExtractingCoverages, constants.StateFailed},
	constants.StateExtractingCoverages: {constants.StateValidating, constants.StateFailed},
	constants.StateValidating:          {constants.StatePersisting, constants.StateFailed},
	constants.StatePersisting:          {constants.StateCompleted, constants.StateFailed},
}

// CanTransition reports whether a run may move from one state to another.
func CanTransition(from, to constants.PipelineState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// run tracks the state of one ExtractStructuredData call.
type run struct {
	documentID uuid.UUID
	tenantID   uuid.UUID
	state      constants.PipelineState
	entered    time.Time
	log        *slog.Logger
	observe    TransitionFunc
	onChange   func(constants.PipelineState)
}

func (r *run) advance(to constants.PipelineState) error {
	from := r.state
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal pipeline transition %s -> %s", from, to)
	}
	r.log.Info("pipeline.transition",
		"document_id", r.documentID,
		"from", from,
		"to", to,
		"elapsed_ms", time.Since(r.entered).Milliseconds(),
	)
	r.state, r.entered = to, time.Now()
	if r.onChange != nil {
		r.onChange(to)
	}
	if r.observe != nil {
		r.observe(r.documentID, from, to)
	}
	return nil
}
