// Command todo-server runs the to-do list web service.
//
//	todo-server                  serve (default)
//	todo-server serve            same
//	todo-server healthcheck      probe a running server's /healthz
//	todo-server prune-sessions   delete expired sessions once and exit
//
// Configuration comes from --config (or CONFIG_FILE) and the environment;
// see internal/config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/todo-list/internal/config"
	"github.com/sakif/todo-list/internal/logger"
	"github.com/sakif/todo-list/internal/server"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "todo-server",
	Short:         "Personal to-do list web service",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that a running server is healthy",
	Long: `Request /healthz from a running server and exit non-zero unless it
answers 200. Meant for container health checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if url == "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			url = fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.Server.Port)
		}

		client := &http.Client{Timeout: timeout}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check failed: %s", resp.Status)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var pruneSessionsCmd = &cobra.Command{
	Use:   "prune-sessions",
	Short: "Delete expired sessions and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		srv, err := server.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer srv.Close()

		n, err := srv.PruneSessions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired session(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("todo-server version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")

	healthcheckCmd.Flags().String("url", "", "health endpoint (default http://127.0.0.1:$PORT/healthz)")
	healthcheckCmd.Flags().Duration("timeout", 5*time.Second, "request timeout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(pruneSessionsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	srv, err := server.New(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}
	return srv.Start(cmd.Context())
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// setup loads the config and installs the process logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(log)

	if cfg.Session.EphemeralSecret {
		log.Warn("SESSION_SECRET not set; using a random secret, OAuth logins in flight will not survive a restart")
	}
	return cfg, log, nil
}
