package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dbsmedya/phoneclean/internal/pipeline"
)

const defaultBaseName = "contacts"

// SuggestFileName builds the output file name from the input name, the
// export mode and the number of exported rows. Characters that are not
// safe in file names are replaced with '_'.
func SuggestFileName(base string, mode pipeline.Mode, rows int, format Format) string {
	name := CleanBaseName(base)
	ext := string(format)
	if format != FormatCSV && format != FormatXLSX {
		ext = string(FormatXLSX)
	}
	return fmt.Sprintf("%s_%s_%d_rows.%s", name, mode, rows, ext)
}

// CleanBaseName strips directories and the extension from name and
// replaces path-unsafe characters.
func CleanBaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	for _, r := range name {
		if unsafeRune(r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return defaultBaseName
	}
	return out
}

func unsafeRune(r rune) bool {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return unicode.IsControl(r)
}
