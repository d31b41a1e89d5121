package cmd

import (
	"context"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
)

// unavailableOrchestrator stands in when no kubernetes cluster is reachable.
// The diagnose workflow tolerates its failures as missing bundle sections.
type unavailableOrchestrator struct{}

func (unavailableOrchestrator) GetPodStatus(context.Context, string) (*model.PodStatus, error) {
	return nil, errx.Newf(errx.KindCollaboratorUnavailable, "container platform not configured")
}

func (unavailableOrchestrator) GetLogs(context.Context, string, int64) ([]string, error) {
	return nil, errx.Newf(errx.KindCollaboratorUnavailable, "container platform not configured")
}
