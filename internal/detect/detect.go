// Package detect guesses the header row, the name column and the number
// columns of a table. The guesses are heuristics; callers may replace
// them with explicit selections.
package detect

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/phone"
	"github.com/dbsmedya/phoneclean/internal/types"
)

// Selection is the outcome of detection. Column indexes are zero-based;
// -1 means not found.
type Selection struct {
	HeaderRow     int
	NameColumn    int
	NumberColumns []int
}

// Empty reports whether no header or no number column was found.
func (s Selection) Empty() bool {
	return s.HeaderRow < 0 || len(s.NumberColumns) == 0
}

// Apply copies the selection into the table.
func (s Selection) Apply(t *types.Table) error {
	t.HeaderRow = s.HeaderRow
	t.Selected = append([]int(nil), s.NumberColumns...)
	return t.Validate()
}

// Strategy detects a selection from the first rows of a table.
type Strategy interface {
	Detect(rows []types.Record) Selection
}

// Fixed is a Strategy that always returns the same selection.
type Fixed Selection

// Detect returns the fixed selection.
func (f Fixed) Detect([]types.Record) Selection {
	return Selection(f)
}

// Keyword detects the header from alphabetic content, then matches header
// text against keyword lists. Columns without a keyword hit still count
// as number columns when enough of their sampled values are valid numbers.
type Keyword struct {
	ScanRows        int
	MinValidSamples int
	NameKeywords    []string
	NumberKeywords  []string
	Classifier      interface {
		Classify(c types.Cell) phone.Outcome
	}
}

// NewKeyword creates the default strategy.
func NewKeyword(cfg config.DetectionConfig, v *phone.Validator) *Keyword {
	if v == nil {
		v = phone.DefaultValidator()
	}
	return &Keyword{
		ScanRows:        cfg.ScanRows,
		MinValidSamples: cfg.MinValidSamples,
		NameKeywords:    cfg.NameKeywords,
		NumberKeywords:  cfg.NumberKeywords,
		Classifier:      v,
	}
}

// Detect implements Strategy.
func (k *Keyword) Detect(rows []types.Record) Selection {
	sel := Selection{HeaderRow: -1, NameColumn: -1}

	scan := k.ScanRows
	if scan <= 0 {
		scan = 10
	}
	if len(rows) < scan {
		scan = len(rows)
	}

	for i := 0; i < scan; i++ {
		if looksLikeHeader(rows[i]) {
			sel.HeaderRow = i
			break
		}
	}
	if sel.HeaderRow < 0 {
		return sel
	}

	header := rows[sel.HeaderRow]
	end := sel.HeaderRow + 1 + scan
	if end > len(rows) {
		end = len(rows)
	}
	sample := rows[sel.HeaderRow+1 : end]

	for col := range header {
		text := strings.ToLower(strings.TrimSpace(header.Get(col).String()))
		valid := k.validSamples(sample, col)
		keyword := matchesAny(text, k.NumberKeywords)
		// "Contact Person" hits both lists; it needs a real number to count.
		if keyword && matchesAny(text, k.NameKeywords) {
			keyword = valid > 0
		}
		if keyword || valid >= k.minValid() {
			sel.NumberColumns = append(sel.NumberColumns, col)
		}
	}

	for col := range header {
		if containsInt(sel.NumberColumns, col) {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(header.Get(col).String()))
		if matchesAny(text, k.NameKeywords) {
			sel.NameColumn = col
			break
		}
	}
	if sel.NameColumn < 0 {
		sel.NameColumn = alphabeticColumn(sample, len(header), sel.NumberColumns)
	}
	return sel
}

func (k *Keyword) minValid() int {
	if k.MinValidSamples <= 0 {
		return 3
	}
	return k.MinValidSamples
}

func (k *Keyword) validSamples(rows []types.Record, col int) int {
	n := 0
	for _, r := range rows {
		if k.Classifier.Classify(r.Get(col)).Status == phone.StatusValid {
			n++
		}
	}
	return n
}

// looksLikeHeader reports whether most non-empty cells of r hold letters.
func looksLikeHeader(r types.Record) bool {
	filled, alpha := 0, 0
	for _, c := range r {
		if c.IsBlank() {
			continue
		}
		filled++
		if c.Kind() == types.KindText && hasLetter(c.String()) {
			alpha++
		}
	}
	return alpha > 0 && alpha*2 >= filled
}

func alphabeticColumn(rows []types.Record, width int, skip []int) int {
	for col := 0; col < width; col++ {
		if containsInt(skip, col) {
			continue
		}
		alpha, filled := 0, 0
		for _, r := range rows {
			c := r.Get(col)
			if c.IsBlank() {
				continue
			}
			filled++
			if hasLetter(c.String()) {
				alpha++
			}
		}
		if filled > 0 && alpha*2 > filled {
			return col
		}
	}
	return -1
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func matchesAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ResolveColumns maps user column references to zero-based indexes. A
// reference is a header name (case-insensitive), a column letter such as
// "C", or a 1-based column number.
func ResolveColumns(header types.Record, refs []string) ([]int, error) {
	var cols []int
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		col, err := resolveColumn(header, ref)
		if err != nil {
			return nil, err
		}
		if !containsInt(cols, col) {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

func resolveColumn(header types.Record, ref string) (int, error) {
	for i, c := range header {
		if strings.EqualFold(strings.TrimSpace(c.String()), ref) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(header) {
			return 0, fmt.Errorf("%w: column %d (header has %d columns)", types.ErrColumnOutOfRange, n, len(header))
		}
		return n - 1, nil
	}
	if n, err := excelize.ColumnNameToNumber(ref); err == nil {
		if n > len(header) {
			return 0, fmt.Errorf("%w: column %s (header has %d columns)", types.ErrColumnOutOfRange, ref, len(header))
		}
		return n - 1, nil
	}
	return 0, fmt.Errorf("unknown column %q", ref)
}
