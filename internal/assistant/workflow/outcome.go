package workflow

import "github.com/quickspin-labs/assistant/internal/assistant/composer"

// failureOutcome keeps whatever the completed steps already populated and
// marks the outcome failed with the step error.
func failureOutcome(r *Run, err error) composer.Outcome {
	oc := r.Outcome
	oc.Kind = composer.OutcomeFailed
	oc.Err = err
	return oc
}

// abortedOutcome keeps the proposal context so the reply can say what was
// cancelled.
func abortedOutcome(r *Run) composer.Outcome {
	oc := r.Outcome
	oc.Kind = composer.OutcomeAborted
	return oc
}
