package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Inspect and manage stored conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations, most recently active first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}

		convs, err := a.repo.ListConversations(ctx, a.cfg.UserID, 50)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Println("No conversations stored.")
			return nil
		}
		for _, c := range convs {
			fmt.Printf("%s  %s  (%d turns, updated %s)\n",
				c.ID, c.Title, c.TurnCount, c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print the turns of one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}

		conv, err := a.repo.GetConversation(ctx, args[0])
		if err != nil {
			return err
		}
		if conv == nil {
			return fmt.Errorf("conversation %q not found", args[0])
		}

		turns, err := a.repo.RecentTurns(ctx, args[0], 0)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d turns)\n\n", conv.Title, conv.TurnCount)
		for _, t := range turns {
			fmt.Printf("[%s] %s\n%s\n\n", t.Timestamp.Format("15:04:05"), t.Role, t.Content)
		}
		return nil
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation and all its turns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}

		if err := a.repo.DeleteConversation(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted conversation %s.\n", args[0])
		return nil
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd, conversationsShowCmd, conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}
