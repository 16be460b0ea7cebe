package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/helpdesk/internal/admin"
	"github.com/ziadkadry99/helpdesk/internal/chat"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/progress"
	"github.com/ziadkadry99/helpdesk/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the helpdesk HTTP server",
	Long:  `Starts the chat API, the chat websocket, the incident API and the admin API. The KB file is loaded on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.kb.LoadFile(ctx, progress.NewReporter("Loading knowledge base"))
		if err != nil {
			return fmt.Errorf("loading KB file: %w", err)
		}

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, a.db, a.log)

		r := srv.Router()
		incident.RegisterRoutes(r, a.incidents)
		chat.NewHandler(a.orch, a.log).RegisterRoutes(r)
		if cfg.Server.AdminToken == "" {
			a.log.Warn().Msg("server.admin_token is empty, the admin API is unauthenticated")
		}
		admin.RegisterRoutes(r, a.admin, a.audit, cfg.Server.AdminToken)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error().Err(err).Msg("shutdown")
			}
		}()

		fmt.Fprintf(os.Stderr, "helpdesk v%s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Data dir: %s\n", cfg.DataDir)
		fmt.Fprintf(os.Stderr, "  KB entries loaded: %d (indexed: %d)\n", n, a.kb.Index().Size())

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
