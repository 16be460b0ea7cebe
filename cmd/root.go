package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/helpdesk/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "Conversational IT helpdesk that turns chat into tracked incidents",
	Long: `Helpdesk is a chatbot for IT support. It matches user problems against a
knowledge base of known issues, collects the details needed to resolve
them, and tracks every problem as an incident an admin can review.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
