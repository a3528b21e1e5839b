package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	agua "github.com/jcm204/APD-Proyecto-Agua-Cultivos"
)

var (
	configPath string
	verbose    bool
	logJSON    bool
	cfg        agua.Config
)

var rootCmd = &cobra.Command{
	Use:   "agua",
	Short: "Build and enrich the agricultural water-use graph",
	Long: `agua turns the regional crop and water-use tables into a schema.org
entity graph, links its places and crops to Wikidata, and reports on the
result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found, using system environment")
		}

		cfg = agua.DefaultConfig()
		if configPath != "" {
			var err error
			cfg, err = agua.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		// Environment overrides.
		if v := os.Getenv("AGUA_ENDPOINT"); v != "" {
			cfg.Endpoint = v
		}
		if v := os.Getenv("AGUA_USER_AGENT"); v != "" {
			cfg.UserAgent = v
		}
		if v := os.Getenv("AGUA_CACHE_DB"); v != "" {
			cfg.CacheDBPath = v
		}
		return nil
	},
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON instead of text")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
