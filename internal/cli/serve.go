package cli

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

	"github.com/ppiankov/promptguard/internal/httpapi"
	"github.com/ppiankov/promptguard/internal/ratelimit"
	"github.com/ppiankov/promptguard/internal/server"
)

var (
	serveGRPC  string
	serveHTTP  string
	serveWatch bool
	serveLimit ratelimit.Limit
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveGRPC, "grpc", ":50051", "gRPC listen address")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "HTTP listen address for the REST API and /metrics (disabled when empty)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload the policy file when it changes")
	serveCmd.Flags().IntVar(&serveLimit.MaxRequests, "rate-limit", 0, "Max HTTP API requests per client per window (0 disables)")
	serveCmd.Flags().DurationVar(&serveLimit.Window, "rate-window", time.Minute, "Rate limit window")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the policy server",
	Long:  "Runs promptguard as a central policy server over gRPC and, optionally, HTTP.\nAll surfaces share one policy and one event log.\nThe policy file is hot-reloaded; a broken edit keeps the previous policy.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := policyPath()
	srv, err := server.New(ctx, server.Config{
		Addr:       serveGRPC,
		PolicyPath: path,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	if serveWatch {
		reloader, err := server.NewReloader(srv, []string{path})
		if err != nil {
			logger.Warn().Err(err).Msg("hot-reload disabled")
		} else {
			go reloader.Run(ctx)
			if len(reloader.Paths()) > 0 {
				logger.Info().Strs("paths", reloader.Paths()).Msg("hot-reload enabled")
			}
		}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Serve() }()

	var httpSrv *http.Server
	if serveHTTP != "" {
		httpSrv = httpapi.NewServer(srv, httpapi.Config{
			Addr:      serveHTTP,
			Version:   version,
			Logger:    logger,
			RateLimit: serveLimit,
		})
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "promptguard policy server listening on %s (gRPC)\n", serveGRPC)
	if serveHTTP != "" {
		fmt.Fprintf(os.Stderr, "REST API on %s%s\n", serveHTTP, httpapi.OpenAPIPath)
	}
	fmt.Fprintf(os.Stderr, "Policy: %s\n\n", path)

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "\nShutting down policy server...")
		err = nil
	case err = <-errCh:
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	srv.GracefulStop()
	return err
}
