// Package config provides configuration structures and loading for phoneclean.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Limits       LimitsConfig       `yaml:"limits" mapstructure:"limits"`
	Number       NumberConfig       `yaml:"number" mapstructure:"number"`
	Processing   ProcessingConfig   `yaml:"processing" mapstructure:"processing"`
	Detection    DetectionConfig    `yaml:"detection" mapstructure:"detection"`
	Export       ExportConfig       `yaml:"export" mapstructure:"export"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// LimitsConfig holds the size ceilings applied before and during parsing.
type LimitsConfig struct {
	MaxFileSize       int64 `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes
	MaxRows           int   `yaml:"max_rows" mapstructure:"max_rows"`
	MaxColumns        int   `yaml:"max_columns" mapstructure:"max_columns"`
	MaxCells          int64 `yaml:"max_cells" mapstructure:"max_cells"`
	WarnRows          int   `yaml:"warn_rows" mapstructure:"warn_rows"`                     // large-sheet warning, below max_rows
	PreflightMinBytes int64 `yaml:"preflight_min_bytes" mapstructure:"preflight_min_bytes"` // containers above this get archive inspection
	SheetXMLWarn      int64 `yaml:"sheet_xml_warn" mapstructure:"sheet_xml_warn"`           // uncompressed worksheet bytes
	SheetXMLMax       int64 `yaml:"sheet_xml_max" mapstructure:"sheet_xml_max"`
}

// NumberConfig describes the single local-number shape that is accepted.
type NumberConfig struct {
	CountryCode      string   `yaml:"country_code" mapstructure:"country_code"`
	FirstDigits      string   `yaml:"first_digits" mapstructure:"first_digits"` // accepted leading digits of the local part
	RejectedPatterns []string `yaml:"rejected_patterns" mapstructure:"rejected_patterns"`
	MaxPerCell       int      `yaml:"max_per_cell" mapstructure:"max_per_cell"`
}

// ProcessingConfig represents chunking, batching and sampling settings.
type ProcessingConfig struct {
	ChunkSize      int     `yaml:"chunk_size" mapstructure:"chunk_size"` // bytes per streamed chunk
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size"` // rows between yield points
	YieldBudgetMS  int     `yaml:"yield_budget_ms" mapstructure:"yield_budget_ms"`
	SleepSeconds   float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"` // optional pause at each yield point
	FastModeRows   int     `yaml:"fast_mode_rows" mapstructure:"fast_mode_rows"`
	SampleCapacity int     `yaml:"sample_capacity" mapstructure:"sample_capacity"`
	PreviewRows    int     `yaml:"preview_rows" mapstructure:"preview_rows"`
	HeapLimitMB    int     `yaml:"heap_limit_mb" mapstructure:"heap_limit_mb"` // 0 disables the heap monitor
}

// DetectionConfig tunes the header and column heuristics.
type DetectionConfig struct {
	ScanRows        int      `yaml:"scan_rows" mapstructure:"scan_rows"`
	MinValidSamples int      `yaml:"min_valid_samples" mapstructure:"min_valid_samples"`
	NameKeywords    []string `yaml:"name_keywords" mapstructure:"name_keywords"`
	NumberKeywords  []string `yaml:"number_keywords" mapstructure:"number_keywords"`
}

// ExportConfig represents output shaping and serialization settings.
type ExportConfig struct {
	Mode                   string `yaml:"mode" mapstructure:"mode"`     // full, unique, mobile_name, keep_all
	Format                 string `yaml:"format" mapstructure:"format"` // auto, xlsx, csv
	CSVFallbackRows        int    `yaml:"csv_fallback_rows" mapstructure:"csv_fallback_rows"`
	KeepAllCSVFallbackRows int    `yaml:"keep_all_csv_fallback_rows" mapstructure:"keep_all_csv_fallback_rows"`
	Separator              string `yaml:"separator" mapstructure:"separator"` // joins two numbers found in one cell
	OutputDir              string `yaml:"output_dir" mapstructure:"output_dir"`
}

// VerificationConfig represents output verification settings.
type VerificationConfig struct {
	Method string `yaml:"method" mapstructure:"method"` // "count", "sha256" or "skip"
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultRejectedPatterns are literal local numbers that are never accepted.
var DefaultRejectedPatterns = []string{
	"1234567890",
	"0123456789",
	"9876543210",
	"0987654321",
	"6789012345",
	"7890123456",
	"8901234567",
	"9012345678",
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxFileSize:       200 << 20,
			MaxRows:           1_000_000,
			MaxColumns:        500,
			MaxCells:          20_000_000,
			WarnRows:          300_000,
			PreflightMinBytes: 10 << 20,
			SheetXMLWarn:      150 << 20,
			SheetXMLMax:       600 << 20,
		},
		Number: NumberConfig{
			CountryCode:      "91",
			FirstDigits:      "6789",
			RejectedPatterns: append([]string(nil), DefaultRejectedPatterns...),
			MaxPerCell:       2,
		},
		Processing: ProcessingConfig{
			ChunkSize:      1 << 20,
			BatchSize:      2000,
			YieldBudgetMS:  40,
			SleepSeconds:   0,
			FastModeRows:   200_000,
			SampleCapacity: 10_000,
			PreviewRows:    100,
			HeapLimitMB:    0,
		},
		Detection: DetectionConfig{
			ScanRows:        10,
			MinValidSamples: 3,
			NameKeywords:    []string{"name", "customer", "contact person", "full name"},
			NumberKeywords:  []string{"mobile", "phone", "contact", "number", "cell", "whatsapp"},
		},
		Export: ExportConfig{
			Mode:                   "full",
			Format:                 "auto",
			CSVFallbackRows:        300_000,
			KeepAllCSVFallbackRows: 150_000,
			Separator:              ", ",
			OutputDir:              ".",
		},
		Verification: VerificationConfig{
			Method: "count",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// YieldBudget returns the processing time budget between yield points.
func (p ProcessingConfig) YieldBudget() time.Duration {
	return time.Duration(p.YieldBudgetMS) * time.Millisecond
}

// Sleep returns the configured pause at each yield point.
func (p ProcessingConfig) Sleep() time.Duration {
	return time.Duration(p.SleepSeconds * float64(time.Second))
}

// Addr returns the server listen address in host:port format.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
