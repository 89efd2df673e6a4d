package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// ValidModes lists the accepted export.mode values.
var ValidModes = map[string]bool{"full": true, "unique": true, "mobile_name": true, "keep_all": true}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateLimits()...)
	errors = append(errors, c.validateNumber()...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateDetection()...)
	errors = append(errors, c.validateExport()...)
	errors = append(errors, c.validateVerification()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateLimits() ValidationErrors {
	var errors ValidationErrors
	l := c.Limits

	if l.MaxFileSize <= 0 {
		errors = append(errors, ValidationError{Field: "limits.max_file_size", Message: "max_file_size must be positive"})
	}
	if l.MaxRows <= 0 {
		errors = append(errors, ValidationError{Field: "limits.max_rows", Message: "max_rows must be positive"})
	}
	if l.MaxColumns <= 0 {
		errors = append(errors, ValidationError{Field: "limits.max_columns", Message: "max_columns must be positive"})
	}
	if l.MaxCells <= 0 {
		errors = append(errors, ValidationError{Field: "limits.max_cells", Message: "max_cells must be positive"})
	}
	if l.WarnRows < 0 || l.WarnRows >= l.MaxRows {
		errors = append(errors, ValidationError{Field: "limits.warn_rows", Message: "warn_rows must be between 0 and max_rows"})
	}
	if l.SheetXMLWarn <= 0 || l.SheetXMLMax <= 0 || l.SheetXMLWarn >= l.SheetXMLMax {
		errors = append(errors, ValidationError{Field: "limits.sheet_xml_warn", Message: "sheet_xml_warn must be positive and below sheet_xml_max"})
	}

	return errors
}

func (c *Config) validateNumber() ValidationErrors {
	var errors ValidationErrors
	n := c.Number

	if n.CountryCode == "" || !allDigits(n.CountryCode) {
		errors = append(errors, ValidationError{Field: "number.country_code", Message: "country_code must be digits"})
	}
	if n.FirstDigits == "" || !allDigits(n.FirstDigits) {
		errors = append(errors, ValidationError{Field: "number.first_digits", Message: "first_digits must be a non-empty set of digits"})
	}
	for i, p := range n.RejectedPatterns {
		if len(p) != 10 || !allDigits(p) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("number.rejected_patterns[%d]", i),
				Message: "pattern must be exactly 10 digits",
			})
		}
	}
	if n.MaxPerCell <= 0 {
		errors = append(errors, ValidationError{Field: "number.max_per_cell", Message: "max_per_cell must be positive"})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors
	p := c.Processing

	if p.ChunkSize < 1024 {
		errors = append(errors, ValidationError{Field: "processing.chunk_size", Message: "chunk_size must be at least 1024 bytes"})
	}
	if p.BatchSize <= 0 {
		errors = append(errors, ValidationError{Field: "processing.batch_size", Message: "batch_size must be positive"})
	}
	if p.YieldBudgetMS <= 0 {
		errors = append(errors, ValidationError{Field: "processing.yield_budget_ms", Message: "yield_budget_ms must be positive"})
	}
	if p.SleepSeconds < 0 {
		errors = append(errors, ValidationError{Field: "processing.sleep_seconds", Message: "sleep_seconds cannot be negative"})
	}
	if p.FastModeRows < 0 {
		errors = append(errors, ValidationError{Field: "processing.fast_mode_rows", Message: "fast_mode_rows cannot be negative"})
	}
	if p.SampleCapacity < 0 {
		errors = append(errors, ValidationError{Field: "processing.sample_capacity", Message: "sample_capacity cannot be negative"})
	}
	if p.PreviewRows <= 0 {
		errors = append(errors, ValidationError{Field: "processing.preview_rows", Message: "preview_rows must be positive"})
	}
	if p.HeapLimitMB < 0 {
		errors = append(errors, ValidationError{Field: "processing.heap_limit_mb", Message: "heap_limit_mb cannot be negative"})
	}

	return errors
}

func (c *Config) validateDetection() ValidationErrors {
	var errors ValidationErrors

	if c.Detection.ScanRows <= 0 {
		errors = append(errors, ValidationError{Field: "detection.scan_rows", Message: "scan_rows must be positive"})
	}
	if c.Detection.MinValidSamples <= 0 {
		errors = append(errors, ValidationError{Field: "detection.min_valid_samples", Message: "min_valid_samples must be positive"})
	}

	return errors
}

func (c *Config) validateExport() ValidationErrors {
	var errors ValidationErrors
	e := c.Export

	if !ValidModes[e.Mode] {
		errors = append(errors, ValidationError{
			Field:   "export.mode",
			Message: "mode must be 'full', 'unique', 'mobile_name', or 'keep_all'",
		})
	}

	validFormats := map[string]bool{"auto": true, "xlsx": true, "csv": true, "": true}
	if !validFormats[e.Format] {
		errors = append(errors, ValidationError{Field: "export.format", Message: "format must be 'auto', 'xlsx', or 'csv'"})
	}
	if e.CSVFallbackRows <= 0 {
		errors = append(errors, ValidationError{Field: "export.csv_fallback_rows", Message: "csv_fallback_rows must be positive"})
	}
	if e.KeepAllCSVFallbackRows <= 0 || e.KeepAllCSVFallbackRows > e.CSVFallbackRows {
		errors = append(errors, ValidationError{
			Field:   "export.keep_all_csv_fallback_rows",
			Message: "keep_all_csv_fallback_rows must be positive and not above csv_fallback_rows",
		})
	}

	return errors
}

func (c *Config) validateVerification() ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "sha256": true, "skip": true, "": true}
	if !validMethods[c.Verification.Method] {
		errors = append(errors, ValidationError{
			Field:   "verification.method",
			Message: "method must be 'count', 'sha256', or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{Field: "server.port", Message: "port must be between 1 and 65535"})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
