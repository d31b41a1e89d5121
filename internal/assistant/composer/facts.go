package composer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quickspin-labs/assistant/internal/core/errx"
)

func usdHourly(v float64) string  { return fmt.Sprintf("$%.3f/hour", v) }
func usdMonthly(v float64) string { return fmt.Sprintf("$%.2f/month", v) }

// renderFacts flattens the outcome into the bullet list handed to the model.
func renderFacts(oc Outcome) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, "- "+format+"\n", args...)
	}

	switch oc.Kind {
	case OutcomeConfirmationRequired:
		line("outcome: awaiting user confirmation, nothing has been created yet")
		if oc.Config != nil {
			line("proposed service: %s (%s tier), name %q", oc.Config.ServiceType, oc.Config.Tier, oc.ServiceName)
			line("resources: %dMB memory, %.1f CPU cores, %d replica(s)", oc.Config.MemoryMB, oc.Config.CPUCores, replicas(oc.Config.Replicas))
			if oc.Config.StorageGB > 0 {
				line("storage: %dGB", oc.Config.StorageGB)
			}
		}
		if oc.Estimate != nil {
			line("estimated cost: %s, %s", usdHourly(oc.Estimate.HourlyUSD), usdMonthly(oc.Estimate.MonthlyUSD))
		}

	case OutcomeProvisioned:
		if oc.Service != nil {
			line("outcome: service %q created, status %s", oc.Service.Name, oc.Service.Status)
			line("service type: %s, tier: %s, id: %s", oc.Service.ServiceType, oc.Service.Tier, oc.Service.ID)
			if len(oc.Service.ConnectionInfo) > 0 {
				line("connection details are available")
			}
		}
		if oc.Estimate != nil {
			line("cost: %s, %s", usdHourly(oc.Estimate.HourlyUSD), usdMonthly(oc.Estimate.MonthlyUSD))
		}

	case OutcomeDiagnosis:
		line("outcome: diagnosis of service %q", oc.ServiceName)
		if oc.RootCause != "" {
			line("likely root cause: %s", oc.RootCause)
		}
		for _, f := range oc.Findings {
			line("finding: %s", f)
		}
		for _, r := range oc.Recommendations {
			line("recommendation (%s): %s", r.Priority, r.Title)
		}

	case OutcomeOptimization:
		if oc.Analysis != nil {
			line("total current spend: %s", usdMonthly(oc.Analysis.TotalMonthlyUSD))
			line("potential savings: %s", usdMonthly(oc.Analysis.OptimizationPotential))
			for _, sc := range oc.Analysis.TopExpensiveServices {
				line("expensive service: %s (%s) at %s", sc.ServiceName, sc.ServiceType, usdMonthly(sc.MonthlyUSD))
			}
		}
		for _, r := range oc.Recommendations {
			if r.EstimatedSavingsMonthly > 0 {
				line("recommendation (%s): %s, saves %s", r.Priority, r.Title, usdMonthly(r.EstimatedSavingsMonthly))
			} else {
				line("recommendation (%s): %s", r.Priority, r.Title)
			}
		}
		if len(oc.Recommendations) == 0 && (oc.Analysis == nil || len(oc.Analysis.TopExpensiveServices) == 0) {
			line("no services found to analyse")
		}

	case OutcomeAborted:
		line("outcome: the user cancelled, nothing was created or changed")
		if oc.Config != nil {
			line("cancelled request: %s (%s tier)", oc.Config.ServiceType, oc.Config.Tier)
		}

	case OutcomeFailed:
		line("outcome: the request failed")
		line("reason: %s", failureReason(oc.Err))
		if xe := asErrx(oc.Err); xe != nil && xe.ResourceID != "" {
			line("affected resource id: %s", xe.ResourceID)
		}

	case OutcomeAnswer:
		line("outcome: answer the user's question directly")
		if oc.ServiceName != "" {
			line("service in question: %s", oc.ServiceName)
		}

	default:
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderFallback produces the plain deterministic reply used when the model
// cannot be reached.
func renderFallback(oc Outcome) string {
	switch oc.Kind {
	case OutcomeConfirmationRequired:
		var b strings.Builder
		b.WriteString("Here is what I would create:\n")
		if oc.Config != nil {
			fmt.Fprintf(&b, "  %s (%s tier), name %s\n", oc.Config.ServiceType, oc.Config.Tier, oc.ServiceName)
			fmt.Fprintf(&b, "  %dMB memory, %.1f CPU cores, %d replica(s)\n", oc.Config.MemoryMB, oc.Config.CPUCores, replicas(oc.Config.Replicas))
			if oc.Config.StorageGB > 0 {
				fmt.Fprintf(&b, "  %dGB storage\n", oc.Config.StorageGB)
			}
		}
		if oc.Estimate != nil {
			fmt.Fprintf(&b, "Estimated cost: %s (%s).\n", usdHourly(oc.Estimate.HourlyUSD), usdMonthly(oc.Estimate.MonthlyUSD))
		}
		b.WriteString("Nothing has been created yet. Reply \"yes\" to proceed or \"no\" to cancel.")
		return b.String()

	case OutcomeProvisioned:
		if oc.Service != nil {
			return fmt.Sprintf("Your %s service %q has been created and is %s. Service id: %s.",
				oc.Service.ServiceType, oc.Service.Name, oc.Service.Status, oc.Service.ID)
		}
		return "Your service has been created."

	case OutcomeDiagnosis:
		var b strings.Builder
		fmt.Fprintf(&b, "Diagnosis for %s:\n", oc.ServiceName)
		if oc.RootCause != "" {
			fmt.Fprintf(&b, "Likely root cause: %s\n", oc.RootCause)
		}
		for _, f := range oc.Findings {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		if len(oc.Recommendations) > 0 {
			b.WriteString("Recommended next steps:\n")
			for _, r := range oc.Recommendations {
				fmt.Fprintf(&b, "  - [%s] %s\n", r.Priority, r.Title)
			}
		}
		return strings.TrimRight(b.String(), "\n")

	case OutcomeOptimization:
		var b strings.Builder
		if len(oc.Recommendations) == 0 && oc.Analysis != nil && len(oc.Analysis.TopExpensiveServices) == 0 {
			return "You have no services running, so there is nothing to spend or save right now."
		}
		if oc.Analysis != nil {
			fmt.Fprintf(&b, "You are currently spending %s.\n", usdMonthly(oc.Analysis.TotalMonthlyUSD))
			if oc.Analysis.OptimizationPotential > 0 {
				fmt.Fprintf(&b, "Potential savings: %s.\n", usdMonthly(oc.Analysis.OptimizationPotential))
			}
		}
		if len(oc.Recommendations) == 0 {
			b.WriteString("No optimization opportunities found. Everything looks well utilised.")
			return b.String()
		}
		b.WriteString("Recommendations:\n")
		for _, r := range oc.Recommendations {
			if r.EstimatedSavingsMonthly > 0 {
				fmt.Fprintf(&b, "  - [%s] %s (saves %s)\n", r.Priority, r.Title, usdMonthly(r.EstimatedSavingsMonthly))
			} else {
				fmt.Fprintf(&b, "  - [%s] %s\n", r.Priority, r.Title)
			}
		}
		return strings.TrimRight(b.String(), "\n")

	case OutcomeAborted:
		return "Understood, I have cancelled that request. Nothing was created or changed."

	case OutcomeFailed:
		return "Sorry, that did not work: " + failureReason(oc.Err) + "."

	default:
		return "I can help you provision services, troubleshoot problems, check connections, and optimise costs. What would you like to do?"
	}
}

func replicas(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func asErrx(err error) *errx.Error {
	var xe *errx.Error
	if errors.As(err, &xe) {
		return xe
	}
	return nil
}

// failureReason renders an error kind as user-facing language.
func failureReason(err error) string {
	if err == nil {
		return "an internal error occurred"
	}
	switch errx.KindOf(err) {
	case errx.KindExtraction:
		return "I could not work out which service you want; please name the service type (for example redis or postgresql)"
	case errx.KindQuotaExceeded:
		return "your organization's quota does not allow this; free up capacity or contact your administrator"
	case errx.KindPermissionDenied:
		return "you do not have permission for this operation"
	case errx.KindServiceNotFound:
		return "I could not find that service"
	case errx.KindProvision:
		return "the platform failed to create the service"
	case errx.KindPersistence:
		return "I could not save the conversation"
	case errx.KindCollaboratorTimeout:
		return "a backend service took too long to respond; please try again"
	case errx.KindCollaboratorUnavailable:
		return "a backend service is currently unavailable; please try again shortly"
	default:
		return "an internal error occurred"
	}
}
