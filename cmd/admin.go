package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/helpdesk/internal/audit"
	"github.com/ziadkadry99/helpdesk/internal/incident"
)

var (
	adminStatus  string
	adminPending bool
	adminSteps   string
	adminActor   string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Review incidents and approve KB entries from the terminal",
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show incident and KB counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			st, err := a.admin.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Incidents:          %d\n", st.Total)
			statuses := make([]string, 0, len(st.ByStatus))
			for s := range st.ByStatus {
				statuses = append(statuses, string(s))
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Printf("  %-16s %d\n", s, st.ByStatus[incident.Status(s)])
			}
			fmt.Printf("Awaiting approval:  %d\n", st.NeedsKBApproval)
			fmt.Printf("KB entries:         %d\n", st.KBEntries)
			return nil
		})
	},
}

var adminIncidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := incident.ListFilter{}
		if adminStatus != "" {
			s, err := incident.ParseStatus(adminStatus)
			if err != nil {
				return err
			}
			filter.Status = s
		}
		if adminPending {
			pending := true
			filter.NeedsApproval = &pending
		}
		return withApp(func(ctx context.Context, a *app) error {
			list, err := a.admin.ListIncidents(ctx, filter)
			if err != nil {
				return err
			}
			for _, inc := range list {
				flag := ""
				if inc.NeedsKBApproval {
					flag = " *"
				}
				fmt.Printf("%s  %-12s %s%s\n", inc.ID, inc.Status, inc.UserDemand, flag)
			}
			fmt.Printf("%d incidents (* awaiting KB approval)\n", len(list))
			return nil
		})
	},
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <incident-id>",
	Short: "Approve an incident's solution into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			steps := adminSteps
			if steps == "" {
				inc, err := a.admin.GetIncident(ctx, args[0])
				if err != nil {
					return err
				}
				steps = inc.SolutionSteps
			}
			ok, err := a.admin.ApproveKBEntry(ctx, args[0], steps, adminActor)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(os.Stderr, "%s does not need KB approval\n", args[0])
				return nil
			}
			inc, err := a.admin.GetIncident(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Approved %s (KB entry %s)\n", inc.ID, inc.KBID)
			return nil
		})
	},
}

func init() {
	adminIncidentsCmd.Flags().StringVar(&adminStatus, "status", "", "only incidents with this status")
	adminIncidentsCmd.Flags().BoolVar(&adminPending, "pending-approval", false, "only incidents awaiting KB approval")
	adminApproveCmd.Flags().StringVar(&adminSteps, "steps", "", "solution steps to store (defaults to the incident's)")
	adminCmd.PersistentFlags().StringVar(&adminActor, "actor", audit.DefaultActor, "name recorded in the audit trail")
	adminCmd.AddCommand(adminStatsCmd, adminIncidentsCmd, adminApproveCmd)
	rootCmd.AddCommand(adminCmd)
}
