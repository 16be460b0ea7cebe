package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/helpdesk/internal/progress"
)

var kbSearchLimit int

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base of known issues",
}

var kbImportCmd = &cobra.Command{
	Use:   "import <pattern>...",
	Short: "Import KB files matching glob patterns (e.g. \"kb/**/*.txt\")",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			n, err := a.kb.ImportFiles(ctx, args, progress.NewReporter("Importing KB entries"))
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d entries\n", n)
			return nil
		})
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored KB entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			entries, err := a.kb.List(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%-10s %s\n", e.ID, e.UseCase)
				if verbose {
					fmt.Printf("           needs: %s\n", strings.Join(e.RequiredInfo, ", "))
				}
			}
			fmt.Printf("%d entries\n", len(entries))
			return nil
		})
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank KB entries against a problem description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.kb.LoadFile(ctx, progress.Nop{}); err != nil {
				return err
			}
			query := strings.Join(args, " ")
			candidates, err := a.kb.Index().Search(ctx, query, kbSearchLimit)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Println("No matching entries.")
				return nil
			}
			for i, c := range candidates {
				fmt.Printf("%d. [%s] %s (similarity %.3f)\n", i+1, c.ID, c.UseCase, c.Similarity)
			}
			return nil
		})
	},
}

var kbExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write every stored KB entry to a file in the KB text format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			n, err := a.kb.Export(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d entries to %s\n", n, args[0])
			return nil
		})
	},
}

// withApp loads config, opens the app for the duration of fn and closes it.
func withApp(fn func(ctx context.Context, a *app) error) error {
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
	return fn(ctx, a)
}

func init() {
	kbSearchCmd.Flags().IntVarP(&kbSearchLimit, "limit", "n", 5, "maximum number of results")
	kbCmd.AddCommand(kbImportCmd, kbListCmd, kbSearchCmd, kbExportCmd)
	rootCmd.AddCommand(kbCmd)
}
