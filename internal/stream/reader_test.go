package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingYielder struct {
	calls int
}

func (y *countingYielder) Yield(ctx context.Context) error {
	y.calls++
	return ctx.Err()
}

func collectLines(t *testing.T, r *Reader, input string) []string {
	t.Helper()
	var lines []string
	err := r.Lines(context.Background(), strings.NewReader(input), int64(len(input)), func(line string) bool {
		lines = append(lines, line)
		return true
	})
	require.NoError(t, err)
	return lines
}

func TestLinesLineEndings(t *testing.T) {
	r := &Reader{ChunkSize: 4}
	lines := collectLines(t, r, "a,b\r\nc,d\ne,f")
	assert.Equal(t, []string{"a,b", "c,d", "e,f"}, lines)
}

func TestLinesTrailingNewline(t *testing.T) {
	r := &Reader{ChunkSize: 64}
	lines := collectLines(t, r, "x\ny\n")
	assert.Equal(t, []string{"x", "y"}, lines)
}

func TestLinesMultibyteAcrossChunks(t *testing.T) {
	input := "नाम,मोबाइल\nआशा,9818202888\n"
	expected := []string{"नाम,मोबाइल", "आशा,9818202888"}

	// Every chunk size splits some multi-byte rune at a boundary.
	for size := 1; size <= 8; size++ {
		r := &Reader{ChunkSize: size}
		assert.Equal(t, expected, collectLines(t, r, input), "chunk size %d", size)
	}
}

func TestLinesStripsBOM(t *testing.T) {
	for _, size := range []int{1, 2, 1024} {
		r := &Reader{ChunkSize: size}
		lines := collectLines(t, r, "\xef\xbb\xbfName,Mobile\n")
		assert.Equal(t, []string{"Name,Mobile"}, lines, "chunk size %d", size)
	}
}

func TestLinesReplacesInvalidBytes(t *testing.T) {
	r := &Reader{ChunkSize: 16}
	lines := collectLines(t, r, "ok\xff\n")
	assert.Equal(t, []string{"ok�"}, lines)
}

func TestLinesEarlyStop(t *testing.T) {
	input := strings.Repeat("row\n", 1000)
	r := &Reader{ChunkSize: 8}

	count := 0
	err := r.Lines(context.Background(), strings.NewReader(input), int64(len(input)), func(string) bool {
		count++
		return count < 5
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestLinesProgressMonotonic(t *testing.T) {
	input := strings.Repeat("9818202888\n", 500)
	var reported []int
	r := &Reader{ChunkSize: 100, Progress: func(p int) { reported = append(reported, p) }}

	collectLines(t, r, input)

	require.NotEmpty(t, reported)
	for i := 1; i < len(reported); i++ {
		assert.Greater(t, reported[i], reported[i-1])
	}
	assert.Equal(t, 100, reported[len(reported)-1])
}

func TestLinesYieldsAfterEveryChunk(t *testing.T) {
	input := strings.Repeat("a", 100)
	y := &countingYielder{}
	r := &Reader{ChunkSize: 10, Yielder: y}

	collectLines(t, r, input)
	// Ten full chunks, then the zero-length read that reports EOF.
	assert.Equal(t, 10, y.calls)
}

func TestLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := strings.Repeat("line\n", 100)
	r := &Reader{ChunkSize: 10, Yielder: &countingYielder{}}
	err := r.Lines(ctx, strings.NewReader(input), int64(len(input)), func(string) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecords(t *testing.T) {
	input := "\n  \nName;Mobile\nAsha;\"98182 02888\"\n\nRavi;9876501234\n"
	r := &Reader{ChunkSize: 7}

	var recs [][]string
	delim, err := r.Records(context.Background(), strings.NewReader(input), int64(len(input)), func(rec []string) bool {
		recs = append(recs, rec)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, byte(';'), delim)
	assert.Equal(t, [][]string{
		{"Name", "Mobile"},
		{"Asha", "98182 02888"},
		{"Ravi", "9876501234"},
	}, recs)
}

func TestRecordsDelimiterFixedAfterFirstLine(t *testing.T) {
	input := "Name,Mobile\nA;B,9818202888\n"
	r := &Reader{}

	var recs [][]string
	_, err := r.Records(context.Background(), strings.NewReader(input), int64(len(input)), func(rec []string) bool {
		recs = append(recs, rec)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A;B", "9818202888"}, recs[1])
}

func TestPreview(t *testing.T) {
	input := "Name,Mobile\n" + strings.Repeat("A,9818202888\n", 50)
	r := &Reader{ChunkSize: 32}

	rows, delim, err := r.Preview(context.Background(), strings.NewReader(input), int64(len(input)), 10)
	require.NoError(t, err)
	assert.Equal(t, byte(','), delim)
	assert.Len(t, rows, 10)
}

func TestPreviewNoRows(t *testing.T) {
	input := "Name,Mobile\nA,9818202888\n"
	r := &Reader{}

	for _, n := range []int{0, -1} {
		rows, delim, err := r.Preview(context.Background(), strings.NewReader(input), int64(len(input)), n)
		require.NoError(t, err)
		assert.Empty(t, rows, "maxRows %d", n)
		assert.Equal(t, byte(0), delim)
	}
}

func TestRecordsEmptyInput(t *testing.T) {
	r := &Reader{}
	delim, err := r.Records(context.Background(), strings.NewReader(""), 0, func([]string) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, byte(0), delim)
}
