// Command mcp-cognito serves read-only AWS Cognito user pool tools over MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcp-cognito/internal/cognito"
	"mcp-cognito/internal/config"
	"mcp-cognito/internal/logging"
	"mcp-cognito/internal/server"
	"mcp-cognito/internal/tools"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := execute(ctx, newRootCmd(os.Stdin, os.Stdout), os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs cmd and reports a returned error on stderr. Errors are printed
// only here, not logged on the way out.
func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "mcp-cognito:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		configPath string
		flags      config.Config
	)

	cmd := &cobra.Command{
		Use:           "mcp-cognito",
		Short:         "MCP server for AWS Cognito user pools",
		Long:          `Serve read-only AWS Cognito user pool tools to MCP clients over stdio, or over HTTP with --http.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configPath, flags, os.Getenv)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger, stdin, stdout)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	f.StringVarP(&flags.UserPoolID, "user-pool-id", "u", "", "Cognito user pool id (env "+config.EnvUserPoolID+")")
	f.StringVarP(&flags.Profile, "profile", "p", cognito.DefaultProfile, "AWS shared config profile (env "+config.EnvProfile+")")
	f.StringVarP(&flags.Region, "region", "r", cognito.DefaultRegion, "AWS region (env "+config.EnvRegion+")")
	f.CountVarP(&flags.Verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	f.StringVar(&flags.HTTPAddr, "http", "", "serve over HTTP on this address instead of stdio (env "+config.EnvHTTPAddr+")")
	f.StringVar(&flags.Token, "token", "", "bearer token required by the HTTP surface (env "+config.EnvToken+")")

	return cmd
}

// loadConfig resolves settings in order of precedence: flags, environment,
// config file, defaults.
func loadConfig(cmd *cobra.Command, path string, flags config.Config, getenv func(string) string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(getenv)

	set := cmd.Flags().Changed
	if set("user-pool-id") {
		cfg.UserPoolID = flags.UserPoolID
	}
	if set("profile") {
		cfg.Profile = flags.Profile
	}
	if set("region") {
		cfg.Region = flags.Region
	}
	if set("verbose") {
		cfg.Verbosity = flags.Verbosity
	}
	if set("http") {
		cfg.HTTPAddr = flags.HTTPAddr
	}
	if set("token") {
		cfg.Token = flags.Token
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	client, err := cognito.New(ctx, cfg.Profile, cfg.Region, logger)
	if err != nil {
		return err
	}
	dispatcher := tools.NewDispatcher(client, cfg.UserPoolID, logger)

	logger.Info("starting",
		zap.String("user_pool_id", cfg.UserPoolID),
		zap.String("profile", cfg.Profile),
		zap.String("region", cfg.Region))

	if cfg.HTTPAddr != "" {
		return serveHTTP(ctx, cfg, dispatcher, logger)
	}
	return serveStdio(ctx, dispatcher, logger, stdin, stdout)
}

// serveStdio returns when the client closes stdin or a signal arrives. A read
// blocked on stdin cannot be interrupted, so a signal abandons it.
func serveStdio(ctx context.Context, d *tools.Dispatcher, logger *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	loop := server.NewStdio(server.NewProtocol(d, logger), stdin, stdout, logger)

	done := make(chan error, 1)
	go func() { done <- loop.Serve(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal", zap.Stringer("state", loop.State()))
		return nil
	}
}

func serveHTTP(ctx context.Context, cfg config.Config, d *tools.Dispatcher, logger *zap.Logger) error {
	if cfg.Token == "" {
		logger.Warn("MCP_TOKEN not set; HTTP endpoints will be open. Set MCP_TOKEN to secure.")
	}
	srv := server.New(server.Config{Addr: cfg.HTTPAddr, Token: cfg.Token}, d, logger).HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting MCP HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
