package stream

import "strings"

// Candidates are the delimiters considered during detection, in
// tie-break order.
var Candidates = []byte{',', '\t', ';', '|'}

// DetectDelimiter picks the candidate that occurs most often in line.
// Ties go to the earlier candidate, so a line with none of them yields ','.
func DetectDelimiter(line string) byte {
	best := Candidates[0]
	bestCount := strings.Count(line, string(best))
	for _, c := range Candidates[1:] {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// SplitLine splits one line on delim. Double quotes protect delimiters,
// "" inside quotes is a literal quote, and quote state does not carry
// over to the next line. Each field loses one enclosing pair of quotes
// and its surrounding whitespace.
func SplitLine(line string, delim byte) []string {
	fields := make([]string, 0, 8)
	var b strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			b.WriteByte('"')
			i++
		case ch == '"':
			inQuotes = !inQuotes
			b.WriteByte(ch)
		case ch == delim && !inQuotes:
			fields = append(fields, trimField(b.String()))
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	return append(fields, trimField(b.String()))
}

func trimField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
