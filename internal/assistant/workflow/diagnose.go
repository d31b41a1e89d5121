package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	"github.com/quickspin-labs/assistant/internal/platform/retry"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// Diagnose correlates live service state with known issues into a root-cause
// hypothesis. Every sub-fetch in Gather is read-only, so partial failures
// degrade the bundle instead of killing the run; only an unresolvable service
// is fatal. The confirmation gate fires only when a recommendation would
// mutate remote state.
func diagnoseDefinition() Definition {
	return Definition{
		Kind: KindDiagnose,
		Steps: []Step{
			{Name: "Gather", Run: stepGather},
			{Name: "Search", Run: stepSearch},
			{Name: "Analyze", Run: stepAnalyze},
			{Name: "Recommend", Run: stepRecommend},
		},
	}
}

const logTailLines = 50

func stepGather(ctx context.Context, r *Run, d *Deps) StepResult {
	sctx, cancel := d.stepCtx(ctx)
	defer cancel()

	var services []model.Service
	err := retry.Do(sctx, retry.DefaultAttempts, retry.DefaultBackoff, func(ctx context.Context) error {
		var lerr error
		services, lerr = d.Services.ListServices(ctx, r.Token, r.OrganizationID)
		return lerr
	})
	if err != nil {
		return Fail(err)
	}

	svc, err := resolveService(services, r.Message)
	if err != nil {
		return Fail(err)
	}
	r.Outcome.ServiceName = svc.Name

	bundle := gatherBundle(sctx, d, r.Token, *svc)
	r.Outcome.Service = svc
	return Advance(bundle)
}

// resolveService picks the service the message is about: an explicit name or
// id match wins, a single-service org falls through to that service.
func resolveService(services []model.Service, message string) (*model.Service, error) {
	lower := strings.ToLower(message)
	for i := range services {
		if strings.Contains(lower, strings.ToLower(services[i].Name)) ||
			strings.Contains(lower, strings.ToLower(services[i].ID)) {
			return &services[i], nil
		}
	}
	// a service-type mention narrows the list
	var matched []*model.Service
	for i := range services {
		if strings.Contains(lower, string(services[i].ServiceType)) {
			matched = append(matched, &services[i])
		}
	}
	if len(matched) == 1 {
		return matched[0], nil
	}
	if len(matched) == 0 && len(services) == 1 {
		return &services[0], nil
	}
	return nil, errx.Newf(errx.KindServiceNotFound,
		"could not tell which service the issue is about; name the service")
}

// gatherBundle fetches metrics, logs and pod status concurrently. Each fetch
// is independently retried and independently allowed to fail.
func gatherBundle(ctx context.Context, d *Deps, token string, svc model.Service) model.DiagnosticBundle {
	bundle := model.DiagnosticBundle{Service: svc}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		missing []string
	)
	miss := func(section string, err error) {
		mu.Lock()
		missing = append(missing, section)
		mu.Unlock()
		logx.Warn().Err(err).Str("serviceID", svc.ID).Str("section", section).Msg("diagnostic section unavailable")
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		var m model.ServiceMetrics
		err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBackoff, func(ctx context.Context) error {
			var lerr error
			m, lerr = d.Services.GetMetrics(ctx, token, svc.ID)
			return lerr
		})
		if err != nil {
			miss("metrics", err)
			return
		}
		mu.Lock()
		bundle.Metrics = m
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		var logs []string
		err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBackoff, func(ctx context.Context) error {
			var lerr error
			logs, lerr = d.Orchestrator.GetLogs(ctx, svc.ID, logTailLines)
			return lerr
		})
		if err != nil {
			miss("logs", err)
			return
		}
		mu.Lock()
		bundle.Logs = logs
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		var ps *model.PodStatus
		err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultBackoff, func(ctx context.Context) error {
			var lerr error
			ps, lerr = d.Orchestrator.GetPodStatus(ctx, svc.ID)
			return lerr
		})
		if err != nil {
			miss("pod_status", err)
			return
		}
		mu.Lock()
		bundle.PodStatus = ps
		mu.Unlock()
	}()
	wg.Wait()

	bundle.Missing = missing
	return bundle
}

func stepSearch(ctx context.Context, r *Run, d *Deps) StepResult {
	var snips []knowledge.Snippet
	if d.Retriever != nil {
		snips = d.Retriever.Retrieve(ctx, r.Message, knowledge.CategoryCommonIssues, 2)
	}
	r.Outcome.Snippets = snips
	return Advance(snips)
}

// analysis is the structured result of the Analyze step.
type analysis struct {
	RootCause       string                 `json:"root_cause"`
	Findings        []string               `json:"findings,omitempty"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

const analyzePrompt = `You are a QuickSpin service diagnostics expert. Analyze the
service state below against the user's complaint.

Service state:
%s

Known issues from documentation:
%s

User's complaint: %s

Reply with ONLY a JSON object, no prose:
{"root_cause": "...",
 "findings": ["..."],
 "recommendations": [
   {"type": "restart_service|scale_service|resource_rightsizing|performance_tuning|show_logs",
    "priority": "high|medium|low", "title": "...", "description": "..."}]}`

func stepAnalyze(ctx context.Context, r *Run, d *Deps) StepResult {
	bundle, _ := r.Output("Gather")
	db, ok := bundle.(model.DiagnosticBundle)
	if !ok {
		return Fail(errx.Newf(errx.KindServiceNotFound, "diagnostic bundle missing"))
	}

	a, ok := analyzeWithModel(ctx, d, db, r.Outcome.Snippets, r.Message)
	if !ok {
		a = analyzeHeuristic(db)
	}
	for i := range a.Recommendations {
		if a.Recommendations[i].ID == "" {
			a.Recommendations[i].ID = uuid.NewString()
		}
		a.Recommendations[i].ServiceID = db.Service.ID
	}
	model.SortRecommendations(a.Recommendations)

	r.Outcome.RootCause = a.RootCause
	r.Outcome.Findings = a.Findings
	r.Outcome.Recommendations = a.Recommendations
	return Advance(a)
}

func analyzeWithModel(ctx context.Context, d *Deps, bundle model.DiagnosticBundle, snips []knowledge.Snippet, message string) (analysis, bool) {
	if d.Completer == nil {
		return analysis{}, false
	}
	lctx, cancel := d.llmCtx(ctx)
	defer cancel()

	var docs strings.Builder
	for _, s := range snips {
		docs.WriteString(s.Content)
		docs.WriteString("\n---\n")
	}
	reply, err := d.Completer.Complete(lctx, []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(analyzePrompt, renderBundle(bundle), docs.String(), message)),
	})
	if err != nil {
		logx.Warn().Err(err).Msg("analysis model call failed, using heuristic analysis")
		return analysis{}, false
	}

	var a analysis
	if err := json.Unmarshal([]byte(stripFences(reply)), &a); err != nil || a.RootCause == "" {
		logx.Warn().Err(err).Msg("analysis reply unusable, using heuristic analysis")
		return analysis{}, false
	}
	return a, true
}

func renderBundle(b model.DiagnosticBundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "service: %s (%s), status %s, tier %s\n",
		b.Service.Name, b.Service.ServiceType, b.Service.Status, b.Service.Tier)
	if b.Has("metrics") {
		fmt.Fprintf(&sb, "memory: %.0fMB of %dMB, cpu: %.0f%%, connections: %d\n",
			b.Metrics.MemoryUsageMB, b.Service.Config.MemoryMB, b.Metrics.CPUUsagePercent, b.Metrics.Connections)
	}
	if b.PodStatus != nil {
		fmt.Fprintf(&sb, "pod: phase %s, restarts %d\n", b.PodStatus.Phase, b.PodStatus.TotalRestarts())
	}
	if n := len(b.Logs); n > 0 {
		tail := b.Logs
		if n > 10 {
			tail = b.Logs[n-10:]
		}
		sb.WriteString("recent logs:\n")
		for _, l := range tail {
			sb.WriteString("  " + l + "\n")
		}
	}
	if len(b.Missing) > 0 {
		fmt.Fprintf(&sb, "unavailable sections: %s\n", strings.Join(b.Missing, ", "))
	}
	return sb.String()
}

// analyzeHeuristic produces a deterministic diagnosis from the bundle alone.
// It always yields a root-cause text, even for a healthy-looking service.
func analyzeHeuristic(b model.DiagnosticBundle) analysis {
	var a analysis

	rec := func(t model.RecommendationType, p model.RecommendationPriority, title, desc string) {
		a.Recommendations = append(a.Recommendations, model.Recommendation{
			Type: t, Priority: p, Title: title, Description: desc,
		})
	}

	if b.PodStatus != nil && b.PodStatus.TotalRestarts() > 3 {
		a.RootCause = "the service container is restarting repeatedly, which points at crash-looping"
		a.Findings = append(a.Findings, fmt.Sprintf("pod has restarted %d times", b.PodStatus.TotalRestarts()))
		rec(model.RecShowLogs, model.PriorityHigh, "Inspect recent logs for the crash reason",
			"The tail of the log usually shows the panic or OOM kill that ends each restart cycle.")
		rec(model.RecRestartService, model.PriorityMedium, "Restart the service",
			"A clean restart clears transient state; if the crash loop continues the cause is configuration or resources.")
	}

	util := b.Service.MemoryUtilization()
	if b.Has("metrics") && b.Service.Config.MemoryMB > 0 {
		liveUtil := b.Metrics.MemoryUsageMB / float64(b.Service.Config.MemoryMB)
		if liveUtil > util {
			util = liveUtil
		}
	}
	if util >= 0.9 {
		if a.RootCause == "" {
			a.RootCause = "the service is running close to its memory limit"
		}
		a.Findings = append(a.Findings, fmt.Sprintf("memory utilization at %.0f%% of the configured limit", util*100))
		rec(model.RecScaleService, model.PriorityHigh, "Increase the memory allocation",
			"Sustained near-limit memory causes evictions and latency; moving up a size removes the pressure.")
	}

	switch b.Service.Status {
	case model.StatusFailed, model.StatusStopped:
		if a.RootCause == "" {
			a.RootCause = fmt.Sprintf("the service is reported as %s by the platform", b.Service.Status)
		}
		rec(model.RecRestartService, model.PriorityHigh, "Restart the service",
			"The platform reports the instance is not running.")
	}

	if a.RootCause == "" {
		a.RootCause = "no anomaly stands out in the collected metrics, logs or pod state"
		rec(model.RecShowLogs, model.PriorityLow, "Review the full service logs",
			"The symptom may predate the collected log window.")
	}
	return a
}

// stepRecommend gates on mutating actions: informational diagnoses complete
// directly, anything that would change remote state pauses for confirmation.
func stepRecommend(ctx context.Context, r *Run, d *Deps) StepResult {
	r.Outcome.Kind = composer.OutcomeDiagnosis

	var mutating []model.Recommendation
	for _, rec := range r.Outcome.Recommendations {
		if rec.Type.Mutating() {
			mutating = append(mutating, rec)
		}
	}
	if len(mutating) > 0 {
		return RequireConfirmation(mutating)
	}
	return Advance(r.Outcome.Recommendations)
}
