package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/handlers"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
	RunE:  runServe,
}

// newServer builds the HTTP server. The write timeout outlasts the longest
// request-scoped job so imports and backfills can still send their response.
func newServer(cfg *config.AppConfig, handler http.Handler) *http.Server {
	longest := cfg.ImportTimeout
	if cfg.BackfillTimeout > longest {
		longest = cfg.BackfillTimeout
	}
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: longest + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Cfg
	if len(cfg.JWTSecret) < security.MinSecretLength {
		return errors.New("invalid configuration: JWT_SECRET must be at least 32 bytes")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	server := newServer(cfg, handlers.NewRouter(handlers.RouterConfig{
		Auth:           a.auth,
		Ledger:         a.ledger,
		Transfers:      a.transfers,
		Recurring:      a.recurring,
		Imports:        a.imports,
		MaxUploadSize:  cfg.MaxUploadSizeBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", server.Addr, "writeTimeout", server.WriteTimeout)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.L.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Server shutdown failed", "error", err)
		}
	}
	logger.L.Info("Server stopped gracefully.")
	return nil
}
