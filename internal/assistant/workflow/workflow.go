// Package workflow is the orchestration core. Each workflow kind is a fixed,
// enumerated sequence of steps; the model is only ever used inside a step,
// never to choose control flow. A run either walks its steps to completion,
// pauses at a confirmation gate, or fails at the step that broke.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
)

// Kind names a workflow state machine.
type Kind string

const (
	KindProvision Kind = "provision"
	KindDiagnose  Kind = "diagnose"
	KindOptimize  Kind = "optimize"
)

// Status is the lifecycle state of a run. Completed, failed and aborted are
// terminal; a terminal run is never mutated again.
type Status string

const (
	StatusRunning              Status = "running"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusAborted              Status = "aborted"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAborted
}

// StepOutput is one audit-trail entry. Entries are appended in step order and
// never overwritten.
type StepOutput struct {
	Step   string `json:"step"`
	Output any    `json:"output"`
}

// Input is what a caller supplies to start a run.
type Input struct {
	ConversationID string
	UserID         string
	OrganizationID string
	Token          string
	Message        string
}

// Run is one execution of a workflow for one user turn.
type Run struct {
	ID             string
	ConversationID string
	UserID         string
	OrganizationID string
	Token          string
	Message        string
	Kind           Kind
	CurrentStep    string
	Status         Status
	StepOutputs    []StepOutput
	Err            error

	// Outcome is the structured result handed to the response composer once
	// the run reaches a pause or terminal state.
	Outcome composer.Outcome

	CreatedAt time.Time
	UpdatedAt time.Time
	expiresAt time.Time

	// cursor indexes the next step to execute.
	cursor int
}

func newRun(kind Kind, in Input) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		UserID:         in.UserID,
		OrganizationID: in.OrganizationID,
		Token:          in.Token,
		Message:        in.Message,
		Kind:           kind,
		Status:         StatusRunning,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Output returns the recorded output of a named step, if that step has run.
func (r *Run) Output(step string) (any, bool) {
	for _, so := range r.StepOutputs {
		if so.Step == step {
			return so.Output, true
		}
	}
	return nil, false
}

func (r *Run) record(step string, output any) {
	r.StepOutputs = append(r.StepOutputs, StepOutput{Step: step, Output: output})
	r.UpdatedAt = time.Now().UTC()
}

type resultKind int

const (
	resultAdvance resultKind = iota
	resultConfirm
	resultFail
)

// StepResult is the outcome of one step execution.
type StepResult struct {
	kind   resultKind
	output any
	err    error
}

// Advance records the output and moves to the next step.
func Advance(output any) StepResult {
	return StepResult{kind: resultAdvance, output: output}
}

// RequireConfirmation records the proposal and pauses the run until the user
// explicitly accepts or rejects it.
func RequireConfirmation(proposal any) StepResult {
	return StepResult{kind: resultConfirm, output: proposal}
}

// Fail terminates the run. Outputs of earlier steps stay in the audit trail.
func Fail(err error) StepResult {
	return StepResult{kind: resultFail, err: err}
}

// Step is one named unit of work within a workflow.
type Step struct {
	Name string
	Run  func(ctx context.Context, r *Run, d *Deps) StepResult
}

// Definition is the fixed step order for one workflow kind.
type Definition struct {
	Kind  Kind
	Steps []Step
}

func definitions() map[Kind]Definition {
	return map[Kind]Definition{
		KindProvision: provisionDefinition(),
		KindDiagnose:  diagnoseDefinition(),
		KindOptimize:  optimizeDefinition(),
	}
}
