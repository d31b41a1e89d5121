package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quickspin-labs/assistant/internal/assistant"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive assistant session",
	Long: `Opens a conversational session against the configured QuickSpin
organization. Type a request in plain language; type "exit" to leave.
Requests that would create or change a service always show the cost and
wait for your confirmation first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}

		conversationID := uuid.NewString()
		fmt.Println("QuickSpin assistant. Type a request, or \"exit\" to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			res, err := a.assistant.ProcessMessage(ctx, assistant.Request{
				ConversationID: conversationID,
				UserID:         a.cfg.UserID,
				OrganizationID: a.cfg.OrganizationID,
				Token:          a.cfg.Token,
				Message:        line,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(res.ResponseText)
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
