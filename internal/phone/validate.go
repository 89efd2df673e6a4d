package phone

import (
	"regexp"
	"strings"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// LocalLength is the digit count of a local mobile number.
const LocalLength = 10

// Status classifies the result of cleaning one cell.
type Status uint8

const (
	StatusEmpty Status = iota
	StatusValid
	StatusInvalidPattern
	StatusInvalidLength
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalidPattern:
		return "invalid_pattern"
	case StatusInvalidLength:
		return "invalid_length"
	default:
		return "empty"
	}
}

// Outcome is the cleaning result for one cell. Numbers is set only for
// StatusValid and holds canonical forms in the order they were found.
type Outcome struct {
	Status  Status
	Numbers []string
}

// candidatePattern finds runs that could be a number with or without a
// trunk or country prefix.
var candidatePattern = regexp.MustCompile(`\d{10,12}`)

// Validator extracts canonical numbers from digit strings.
type Validator struct {
	CountryCode string
	FirstDigits string
	MaxPerCell  int
	rejected    map[string]struct{}
}

// NewValidator builds a Validator from configuration.
func NewValidator(cfg config.NumberConfig) *Validator {
	v := &Validator{
		CountryCode: cfg.CountryCode,
		FirstDigits: cfg.FirstDigits,
		MaxPerCell:  cfg.MaxPerCell,
		rejected:    make(map[string]struct{}, len(cfg.RejectedPatterns)),
	}
	for _, p := range cfg.RejectedPatterns {
		v.rejected[p] = struct{}{}
	}
	if v.MaxPerCell <= 0 {
		v.MaxPerCell = 2
	}
	return v
}

// DefaultValidator returns a Validator using the default number settings.
func DefaultValidator() *Validator {
	return NewValidator(config.DefaultConfig().Number)
}

// Classify cleans a single cell. Blank cells are Empty before any digit
// extraction takes place; everything else is reduced to one digit string,
// so separators between numbers are dropped along with other punctuation.
func (v *Validator) Classify(c types.Cell) Outcome {
	if c.IsBlank() {
		return Outcome{Status: StatusEmpty}
	}
	return v.Extract(Normalize(c), v.MaxPerCell)
}

// Extract pulls up to max canonical numbers out of a digit string.
func (v *Validator) Extract(digits string, max int) Outcome {
	var numbers []string
	sawRun := false

	for _, run := range candidatePattern.FindAllString(digits, -1) {
		sawRun = true
		local, ok := v.local(run)
		if !ok {
			continue
		}
		canonical := "+" + v.CountryCode + local
		if contains(numbers, canonical) {
			continue
		}
		numbers = append(numbers, canonical)
		if len(numbers) >= max {
			return Outcome{Status: StatusValid, Numbers: numbers}
		}
	}

	switch {
	case len(numbers) > 0:
		return Outcome{Status: StatusValid, Numbers: numbers}
	case sawRun:
		return Outcome{Status: StatusInvalidPattern}
	default:
		return Outcome{Status: StatusInvalidLength}
	}
}

// local reduces a candidate run to its 10-digit local part and checks its
// shape.
func (v *Validator) local(run string) (string, bool) {
	switch {
	case len(run) == len(v.CountryCode)+LocalLength && strings.HasPrefix(run, v.CountryCode):
		run = run[len(v.CountryCode):]
	case len(run) == LocalLength+1 && run[0] == '0':
		run = run[1:]
	}

	if len(run) != LocalLength {
		return "", false
	}
	if strings.IndexByte(v.FirstDigits, run[0]) < 0 {
		return "", false
	}
	if allSame(run) {
		return "", false
	}
	if _, bad := v.rejected[run]; bad {
		return "", false
	}
	return run, true
}

// Digits returns the dedup key of a canonical number: the local part
// without the "+<country>" prefix.
func (v *Validator) Digits(canonical string) string {
	return strings.TrimPrefix(canonical, "+"+v.CountryCode)
}

var defaultValidator = DefaultValidator()

// CleanMobile returns the primary canonical number in raw, or "" if none.
func CleanMobile(raw string) string {
	out := defaultValidator.Classify(types.NewText(raw))
	if out.Status != StatusValid {
		return ""
	}
	return out.Numbers[0]
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
