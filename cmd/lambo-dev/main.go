// Package main is the entry point for the lambo-dev binary. It serves the
// demo app over HTTP or dispatches a single event read from a file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"lambo/internal/config"
	"lambo/internal/demo"
	"lambo/internal/devserver"
	"lambo/internal/logging"
	"lambo/pkg/lambda"
	"lambo/pkg/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for lambo-dev
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lambo-dev",
		Short:         "Local runner for lambo apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(newServeCmd(), newInvokeCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the app over HTTP",
		Long: `Serve the app over HTTP. Every request is turned into a load balancer
event and dispatched through the Lambda entry point.

Example:
  lambo-dev serve --port 8081`,
		RunE: runServe,
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on; overrides PORT")
	return cmd
}

func newInvokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Dispatch one event and print the result",
		Long: `Dispatch one event read from a JSON or YAML file and print the load
balancer result as JSON.

Example:
  lambo-dev invoke --event cmd/lambo-dev/testdata/get-root.yaml`,
		RunE: runInvoke,
	}
	cmd.Flags().StringP("event", "e", "", "Path to the event file (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

// buildApp loads configuration, applies flag overrides and registers the
// demo routes
func buildApp(cmd *cobra.Command) (*server.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	logging.SetupGlobal(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	source, err := lambda.ParseSource(cfg.Dispatch.Source)
	if err != nil {
		return nil, err
	}

	container, err := server.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	app, err := server.CreateApp(source, container)
	if err != nil {
		return nil, err
	}
	if err := demo.Register(app); err != nil {
		return nil, err
	}
	return app, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	port := app.Container().Config.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return devserver.New(app).Run(ctx, ":"+port)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("event")
	if err != nil {
		return fmt.Errorf("failed to get event flag: %w", err)
	}

	payload, err := loadEvent(path)
	if err != nil {
		return err
	}

	app, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := app.RawHandler()(ctx, payload)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// loadEvent reads an event file. YAML files are converted to JSON so both
// go through the same decoder.
func loadEvent(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event file: %w", err)
		}
		return converted, nil
	case ".json":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported event file extension %q", filepath.Ext(path))
	}
}
