// Command codex is the CLI entry point: a cobra command tree wiring the
// settings store, semantic code index, memory store, and streaming LLM
// client together via buildRootCmd()/buildXCmd() factory functions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codexcore/internal/observability"
	"codexcore/internal/version"
)

var (
	commit = "none"
	date   = "unknown"
)

func main() {
	_ = godotenv.Load()

	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bindObservabilityFlags wires --otlp-endpoint to OTEL_EXPORTER_OTLP_ENDPOINT
// via viper, so either spelling configures the same exporter target.
func bindObservabilityFlags(root *cobra.Command) *viper.Viper {
	v := viper.New()
	root.PersistentFlags().String("otlp-endpoint", "", "OTLP collector endpoint (enables tracing/metrics export)")
	v.BindPFlag("otlp-endpoint", root.PersistentFlags().Lookup("otlp-endpoint"))
	v.BindEnv("otlp-endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	return v
}

func buildRootCmd() *cobra.Command {
	var otelShutdown func(context.Context) error

	root := &cobra.Command{
		Use:          "codex",
		Short:        "Codex — a local coding-agent runtime",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, commit, date),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Launching the interactive TUI is an external collaborator per
			// Non-goals; this module wires the engines the TUI
			// would drive, not the widget tree itself.
			return fmt.Errorf("codex: interactive TUI is not built by this module; use 'codex exec' for a one-shot turn")
		},
	}

	v := bindObservabilityFlags(root)
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		endpoint := v.GetString("otlp-endpoint")
		var otelWriter io.Writer
		if endpoint != "" {
			shutdown, err := observability.InitOTel(cmd.Context(), observability.ObsConfig{
				ServiceName:    "codex",
				ServiceVersion: version.Version,
				Environment:    envOr("CODEX_ENV", "development"),
				OTLP:           endpoint,
			})
			if err != nil {
				return fmt.Errorf("codex: init otel: %w", err)
			}
			otelShutdown = shutdown
			otelWriter = observability.NewOTelWriter("codex")
		}
		observability.InitLogger(os.Getenv("CODEX_LOG_PATH"), os.Getenv("LOG_LEVEL"), otelWriter)
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if otelShutdown == nil {
			return nil
		}
		return otelShutdown(cmd.Context())
	}

	root.AddCommand(
		buildExecCmd(),
		buildResumeCmd(),
		buildIndexCmd(),
		buildSearchCodeCmd(),
		buildSearchConfidenceCmd(),
		buildMemoryCmd(),
		buildModelsCmd(),
		buildLoginCmd(),
		buildLogoutCmd(),
		buildSandboxCmd(),
		buildACPCmd(),
		buildMCPServerCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
