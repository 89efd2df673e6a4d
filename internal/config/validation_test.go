package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero max rows", func(c *Config) { c.Limits.MaxRows = 0 }, "limits.max_rows"},
		{"warn above max", func(c *Config) { c.Limits.WarnRows = c.Limits.MaxRows }, "limits.warn_rows"},
		{"sheet xml warn above max", func(c *Config) { c.Limits.SheetXMLWarn = c.Limits.SheetXMLMax + 1 }, "limits.sheet_xml_warn"},
		{"country code letters", func(c *Config) { c.Number.CountryCode = "IN" }, "number.country_code"},
		{"empty first digits", func(c *Config) { c.Number.FirstDigits = "" }, "number.first_digits"},
		{"short rejected pattern", func(c *Config) { c.Number.RejectedPatterns = []string{"12345"} }, "number.rejected_patterns[0]"},
		{"zero per cell", func(c *Config) { c.Number.MaxPerCell = 0 }, "number.max_per_cell"},
		{"tiny chunk", func(c *Config) { c.Processing.ChunkSize = 10 }, "processing.chunk_size"},
		{"negative sleep", func(c *Config) { c.Processing.SleepSeconds = -1 }, "processing.sleep_seconds"},
		{"zero scan rows", func(c *Config) { c.Detection.ScanRows = 0 }, "detection.scan_rows"},
		{"bad mode", func(c *Config) { c.Export.Mode = "everything" }, "export.mode"},
		{"bad format", func(c *Config) { c.Export.Format = "xls" }, "export.format"},
		{"keep all fallback above csv fallback", func(c *Config) { c.Export.KeepAllCSVFallbackRows = c.Export.CSVFallbackRows + 1 }, "export.keep_all_csv_fallback_rows"},
		{"bad verify method", func(c *Config) { c.Verification.Method = "md5" }, "verification.method"},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }, "server.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error for %s", tt.field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %q, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.MaxRows = 0
	cfg.Export.Mode = "bogus"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	// max_rows also trips warn_rows, which must be below it
	if len(verrs) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.HasPrefix(err.Error(), "validation failed:") {
		t.Errorf("unexpected error format: %s", err.Error())
	}
}

func TestValidationErrorsEmpty(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "" {
		t.Errorf("expected empty string for no errors, got %q", errs.Error())
	}
}

func TestAllDigits(t *testing.T) {
	if !allDigits("0123456789") {
		t.Error("expected digits to be accepted")
	}
	if allDigits("12a4") {
		t.Error("expected letters to be rejected")
	}
}
