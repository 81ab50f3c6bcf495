package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/j-veylop/claude-code-metrics/internal/config"
	"github.com/j-veylop/claude-code-metrics/internal/db"
	"github.com/j-veylop/claude-code-metrics/internal/handler"
	"github.com/j-veylop/claude-code-metrics/internal/logger"
	"github.com/j-veylop/claude-code-metrics/internal/services"
	"github.com/j-veylop/claude-code-metrics/internal/sink"
	"github.com/j-veylop/claude-code-metrics/internal/translator"
	"github.com/j-veylop/claude-code-metrics/internal/version"
)

// lambdaRuntimeEnv is set by the Lambda runtime in every function sandbox.
const lambdaRuntimeEnv = "AWS_LAMBDA_RUNTIME_API"

// newRootCommand returns the root command. Without a subcommand it starts the
// Lambda runtime when running inside Lambda and prints help otherwise.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ccmetrics",
		Short: "Republish Claude Code OTLP metrics to CloudWatch",
		Long: `ccmetrics receives OTLP/JSON metric exports from Claude Code and republishes
token and cost usage as CloudWatch custom metrics.

Configuration is read from a .env file in the current directory or
~/.config/claude-code-metrics/.env, overridden by environment variables:

  METRICS_NAMESPACE     CloudWatch namespace (default: AgenticToolMetrics)
  INCLUDE_SERVICE_NAME  Attach the ServiceName dimension (default: true)
  EXTRA_DIMENSIONS      Extra attribute=Dimension mappings, comma separated
  SINK                  cloudwatch, sqlite or console (default: cloudwatch)
  DATABASE_PATH         SQLite database path for the sqlite sink
  LISTEN_ADDR           Address for serve (default: :4318)
  AWS_REGION            CloudWatch region
  LOG_LEVEL             debug, info, warn or error (default: info)
  LOG_FORMAT            text or json (default: text)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if os.Getenv(lambdaRuntimeEnv) != "" {
				return runLambda(cmd.Context())
			}
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newLambdaCommand(),
		newServeCommand(),
		newTranslateCommand(),
		newPruneCommand(),
		newVersionCommand(),
	)

	return cmd
}

func newLambdaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Start the AWS Lambda runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLambda(cmd.Context())
		},
	}
}

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the OTLP/HTTP metrics endpoint locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func newTranslateCommand() *cobra.Command {
	var (
		isBase64 bool
		publish  bool
	)

	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate an OTLP/JSON export and print the records",
		Long: `translate reads an OTLP/JSON metrics export from a file ("-" for stdin) and
renders the resulting CloudWatch records. With --publish the records are sent
to the configured sink instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			body, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var t handler.Translator
			if publish {
				mgr, err := services.NewManager(cmd.Context(), cfg)
				if err != nil {
					return fmt.Errorf("failed to initialize services: %w", err)
				}
				defer closeManager(mgr)
				t = mgr
			} else {
				t = translator.New(sink.NewConsole(cmd.OutOrStdout()), cfg.TranslatorConfig())
			}

			resp, err := t.Translate(cmd.Context(), body, isBase64)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
			if resp.StatusCode >= 400 {
				return fmt.Errorf("translation failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&isBase64, "base64", false, "input is base64 encoded")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish to the configured sink")
	return cmd
}

func newPruneCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old batches from the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := db.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("error closing database", "error", err)
				}
			}()

			deleted, err := store.CleanupOldBatches(cmd.Context(), days)
			if err != nil {
				return err
			}
			if deleted > 0 {
				if err := store.Vacuum(); err != nil {
					return fmt.Errorf("failed to vacuum database: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d batches older than %d days from %s\n", deleted, days, store.Path())
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "keep batches received within this many days")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	if cfg.EnvFile != "" {
		logger.Debug("loaded env file", "path", cfg.EnvFile)
	}
	return cfg, nil
}

func runLambda(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := services.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	h := handler.NewLambda(mgr)
	lambda.StartWithOptions(h.Handle,
		lambda.WithContext(ctx),
		lambda.WithEnableSIGTERM(func() { closeManager(mgr) }),
	)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	mgr, err := services.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeManager(mgr)

	if err := mgr.WatchConfig(); err != nil {
		logger.Warn("configuration changes will not be picked up", "error", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return handler.NewHTTP(mgr, mgr.Health).Serve(ctx, cfg.ListenAddr)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return body, nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return body, nil
}

func closeManager(mgr *services.Manager) {
	if err := mgr.Close(); err != nil {
		logger.Warn("error closing services", "error", err)
	}
}
