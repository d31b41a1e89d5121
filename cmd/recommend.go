package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickspin-labs/assistant/internal/assistant/workflow"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print cost-optimization recommendations for the organization",
	Long: `Runs the read-only cost analysis directly, without a conversation:
lists the organization's services, classifies idle and underutilized
instances, and prints the resulting recommendations. Nothing is changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}

		run, err := a.engine.Start(ctx, workflow.KindOptimize, workflow.Input{
			UserID:         a.cfg.UserID,
			OrganizationID: a.cfg.OrganizationID,
			Token:          a.cfg.Token,
			Message:        "optimize costs",
		})
		if err != nil {
			return err
		}
		if run.Status == workflow.StatusFailed {
			return fmt.Errorf("cost analysis failed: %w", run.Err)
		}

		oc := run.Outcome
		if oc.Analysis != nil {
			fmt.Printf("Current spend: $%.2f/month\n", oc.Analysis.TotalMonthlyUSD)
			fmt.Printf("Potential savings: $%.2f/month\n\n", oc.Analysis.OptimizationPotential)
		}
		if len(oc.Recommendations) == 0 {
			fmt.Println("No optimization opportunities found.")
			return nil
		}
		for _, r := range oc.Recommendations {
			fmt.Printf("[%s] %s\n", r.Priority, r.Title)
			fmt.Printf("    %s\n", r.Description)
			if r.EstimatedSavingsMonthly > 0 {
				fmt.Printf("    saves $%.2f/month\n", r.EstimatedSavingsMonthly)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
