package cmd

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	exportMode   string
	exportFormat string
	chunkSize    int
	batchSize    int
	sleepSeconds float64
	countryCode  string
	outputDir    string
	verifyMethod string
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "phoneclean",
	Short: "Phone number cleaner for contact spreadsheets",
	Long: `A CLI tool that extracts, normalizes and de-duplicates mobile numbers
from CSV, TSV and Excel contact lists.

Features:
  - Header and phone column detection
  - Streaming two-pass cleaning of delimited files
  - Repair of damaged .xlsx archives
  - Export as .xlsx or CSV with automatic fallback for large results
  - Audit reports of valid, duplicate and rejected numbers`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.Disable()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag; empty runs on built-in defaults
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to configuration file (defaults apply when empty)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Export overrides
	rootCmd.PersistentFlags().StringVarP(&exportMode, "mode", "m", "",
		"Override export mode (full, unique, mobile_name, keep_all)")
	rootCmd.PersistentFlags().StringVar(&exportFormat, "format", "",
		"Override output format (auto, xlsx, csv)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "",
		"Override directory for written files")
	rootCmd.PersistentFlags().StringVar(&countryCode, "country-code", "",
		"Override country code prefixed to cleaned numbers")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0,
		"Override streamed chunk size in bytes")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override rows processed between yield points")
	rootCmd.PersistentFlags().Float64Var(&sleepSeconds, "sleep", 0,
		"Override pause in seconds at each yield point")

	// Safety overrides
	rootCmd.PersistentFlags().StringVar(&verifyMethod, "verify", "",
		"Override output verification (count, sha256, skip)")

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		Mode:         exportMode,
		Format:       exportFormat,
		ChunkSize:    chunkSize,
		BatchSize:    batchSize,
		SleepSeconds: sleepSeconds,
		CountryCode:  countryCode,
		OutputDir:    outputDir,
		Verify:       verifyMethod,
	}
}

// setup loads the configuration, applies the flag overrides and builds
// the logger shared by every command.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(GetCLIOverrides())
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
