package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-rag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the REST API server. Stored resumes are indexed before the listener opens.",
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	srv := server.New(a.serverDeps(), server.Options{
		Addr:            cfg.Addr,
		CORSOrigins:     cfg.CORSOrigins,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ShutdownTimeout: cfg.ShutdownTimeout,
		RateLimit:       cfg.RateLimit,
	})
	return srv.Start(ctx)
}

// serverDeps builds the HTTP dependencies. Without a JWT secret the API is
// read-only: login is unavailable and every bearer token is rejected.
func (a *application) serverDeps() server.Deps {
	deps := server.Deps{
		Resumes: a.resumes,
		Matcher: a.matcher,
		Ask:     a.ask,
		Docs:    a.docs,
		Logger:  a.logger,
	}
	if a.cfg.JWT == nil {
		a.logger.Warn("JWT_SECRET not set, authentication is disabled")
		return deps
	}
	deps.Users = a.userService()
	deps.JWT = server.NewJWTService(a.cfg.JWT)
	return deps
}
