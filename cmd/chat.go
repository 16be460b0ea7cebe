package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/helpdesk/internal/orchestrator"
	"github.com/ziadkadry99/helpdesk/internal/progress"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the helpdesk in the terminal",
	Long: `Starts an interactive chat against the local database and KB. Quick replies
are numbered; type the number to pick one. Ctrl-D or "exit" quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.kb.LoadFile(ctx, progress.Nop{}); err != nil {
			return fmt.Errorf("loading KB file: %w", err)
		}

		sessionID := chatSession
		var buttons []orchestrator.ActionButton
		prompt := promptui.Prompt{Label: "you"}
		for {
			line, err := prompt.Run()
			if errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrInterrupt) {
				return nil
			}
			if err != nil {
				return err
			}
			line = strings.TrimSpace(line)
			if line == "exit" || line == "quit" {
				return nil
			}
			if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(buttons) {
				line = buttons[n-1].Value
			}

			res := a.orch.ProcessTurn(ctx, line, sessionID)
			sessionID = res.SessionID
			printTurn(res)
			buttons = nil
			if res.ShowActionButtons {
				buttons = res.ActionButtons
			}
		}
	},
}

func printTurn(res orchestrator.TurnResult) {
	fmt.Printf("\nhelpdesk: %s\n", res.Message)
	if res.IncidentID != "" && verbose {
		fmt.Printf("  [incident %s, status %s]\n", res.IncidentID, res.Status)
	}
	if res.ShowActionButtons {
		for i, b := range res.ActionButtons {
			fmt.Printf("  %d) %s\n", i+1, b.Label)
		}
	}
	fmt.Println()
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session id")
	rootCmd.AddCommand(chatCmd)
}
