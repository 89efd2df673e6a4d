package preflight

import (
	"errors"
	"io"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

// Result collects non-fatal findings of a preflight run.
type Result struct {
	Dimensions Dimensions
	Archive    *ArchiveReport
	Verdict    Verdict
	Warnings   []string
}

// Checker runs the size checks that gate decoding.
type Checker struct {
	limits      Limits
	xml         XMLLimits
	maxFileSize int64
	minBytes    int64
	logger      *logger.Logger
}

// NewChecker creates a preflight checker from configuration.
func NewChecker(cfg config.LimitsConfig, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Checker{
		limits:      LimitsFromConfig(cfg),
		xml:         XMLLimits{Warn: cfg.SheetXMLWarn, Max: cfg.SheetXMLMax},
		maxFileSize: cfg.MaxFileSize,
		minBytes:    cfg.PreflightMinBytes,
		logger:      log,
	}
}

// Limits returns the dimension limits used by the checker.
func (c *Checker) Limits() Limits {
	return c.limits
}

// CheckFile applies the file size ceiling.
func (c *Checker) CheckFile(size int64) error {
	return CheckFileSize(size, c.maxFileSize)
}

// CheckContainer runs all container checks in order: file size, archive
// complexity (only above the configured size threshold), then the declared
// dimension of the first worksheet. Failures of the archive inspection are
// logged and ignored; the decoder reports real damage.
func (c *Checker) CheckContainer(r io.ReaderAt, size int64) (*Result, error) {
	if err := c.CheckFile(size); err != nil {
		return nil, err
	}

	res := &Result{}
	if size > c.minBytes {
		rep, err := InspectArchive(r, size)
		if err != nil {
			c.logger.Warnf("Archive inspection failed, continuing: %v", err)
		} else {
			verdict, warning, err := c.xml.Classify(rep)
			res.Archive = rep
			res.Verdict = verdict
			if err != nil {
				return res, err
			}
			if warning != "" {
				res.Warnings = append(res.Warnings, warning)
			}
		}
	}

	ref, err := DeclaredDimension(r, size)
	switch {
	case errors.Is(err, ErrEmptySheet):
		return res, err
	case err != nil:
		c.logger.Warnf("Declared dimension unreadable, limits apply while reading: %v", err)
		return res, nil
	}

	dims, err := ParseDimension(ref)
	switch {
	case errors.Is(err, ErrInputTooLarge):
		return res, err
	case err != nil:
		c.logger.Warnf("Ignoring malformed dimension %q: %v", ref, err)
		return res, nil
	}
	res.Dimensions = dims

	warning, err := c.limits.Check(dims)
	if err != nil {
		return res, err
	}
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	c.logger.Debugf("Preflight passed: %d rows x %d columns declared", dims.Rows, dims.Columns)
	return res, nil
}
