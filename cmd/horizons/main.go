// Command horizons queries the JPL Horizons system and decodes its text
// tables, either as a one-shot CLI or as an HTTP gateway.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/star/horizons/internal/config"
)

var (
	configPath   string
	logLevelFlag string
	outputFormat string
)

// level is shared by every handler so the configured level applies after
// the logger has been built.
var level = new(slog.LevelVar)

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

var rootCmd = &cobra.Command{
	Use:   "horizons",
	Short: "Query and decode JPL Horizons ephemerides",
	Long: `horizons fetches the major body catalog, state vectors, osculating orbital
elements and physical properties from the JPL Horizons API and decodes the
fixed-column text tables into structured records.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "json", "yaml":
		default:
			return fmt.Errorf("unsupported output format %q, want json or yaml", outputFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format (json or yaml)")

	rootCmd.AddCommand(bodiesCmd)
	rootCmd.AddCommand(vectorsCmd)
	rootCmd.AddCommand(elementsCmd)
	rootCmd.AddCommand(propertiesCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the effective log level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath, logger)
	if err != nil {
		return config.Config{}, err
	}
	level.Set(cfg.LogLevel)

	if logLevelFlag != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(logLevelFlag)); err != nil {
			return config.Config{}, fmt.Errorf("invalid --log-level %q: %w", logLevelFlag, err)
		}
		level.Set(l)
	}
	return cfg, nil
}

// render writes v to w in the selected output format.
func render(w io.Writer, v any) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}
