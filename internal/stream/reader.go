// Package stream reads delimited text in fixed-size chunks without
// holding the whole input in memory.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultChunkSize is used when Reader.ChunkSize is not set.
const DefaultChunkSize = 1 << 20

// Yielder is a cooperative yield point. It returns the context error when
// the run has been cancelled.
type Yielder interface {
	Yield(ctx context.Context) error
}

// Reader decodes a byte source chunk by chunk into lines and records.
// A Reader is reusable but each call consumes its source once.
type Reader struct {
	ChunkSize int
	Yielder   Yielder
	// Progress receives the integer percentage of bytes consumed. Values
	// never decrease within one call.
	Progress func(percent int)
}

// Lines calls fn for every line in src. Lines end at "\n" or "\r\n"; a
// leading UTF-8 byte order mark is dropped and invalid byte sequences are
// replaced with U+FFFD. Returning false from fn stops reading early.
func (r *Reader) Lines(ctx context.Context, src io.Reader, size int64, fn func(line string) bool) error {
	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	dec := newChunkDecoder(chunkSize)
	var partial string
	var consumed int64
	lastPct := -1

	for {
		n, err := io.ReadFull(src, buf)
		atEOF := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !atEOF {
			return fmt.Errorf("failed to read chunk at byte %d: %w", consumed, err)
		}
		consumed += int64(n)

		text, err := dec.decode(buf[:n], atEOF)
		if err != nil {
			return fmt.Errorf("failed to decode chunk at byte %d: %w", consumed, err)
		}

		text = partial + text
		for {
			i := strings.IndexByte(text, '\n')
			if i < 0 {
				break
			}
			if !fn(strings.TrimSuffix(text[:i], "\r")) {
				return nil
			}
			text = text[i+1:]
		}
		partial = text

		if r.Progress != nil && size > 0 {
			pct := int(consumed * 100 / size)
			if pct > 100 {
				pct = 100
			}
			if pct > lastPct {
				lastPct = pct
				r.Progress(pct)
			}
		}

		if atEOF {
			if partial != "" {
				fn(strings.TrimSuffix(partial, "\r"))
			}
			return nil
		}

		if r.Yielder != nil {
			if err := r.Yielder.Yield(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Records splits every non-blank line into fields. The delimiter is
// detected on the first non-blank line and kept for the rest of the input.
// The detected delimiter is returned, or 0 when the input had no data.
func (r *Reader) Records(ctx context.Context, src io.Reader, size int64, fn func(rec []string) bool) (byte, error) {
	var delim byte
	err := r.Lines(ctx, src, size, func(line string) bool {
		if strings.TrimSpace(line) == "" {
			return true
		}
		if delim == 0 {
			delim = DetectDelimiter(line)
		}
		return fn(SplitLine(line, delim))
	})
	return delim, err
}

// Preview returns at most maxRows records from the start of src. Nothing
// is read when maxRows <= 0.
func (r *Reader) Preview(ctx context.Context, src io.Reader, size int64, maxRows int) ([][]string, byte, error) {
	if maxRows <= 0 {
		return nil, 0, nil
	}
	var rows [][]string
	delim, err := r.Records(ctx, src, size, func(rec []string) bool {
		rows = append(rows, rec)
		return len(rows) < maxRows
	})
	return rows, delim, err
}

// chunkDecoder carries an incomplete trailing UTF-8 sequence from one
// chunk to the next.
type chunkDecoder struct {
	t       transform.Transformer
	dst     []byte
	pending []byte
}

func newChunkDecoder(chunkSize int) *chunkDecoder {
	return &chunkDecoder{
		t:   unicode.UTF8BOM.NewDecoder(),
		dst: make([]byte, 3*chunkSize+16),
	}
}

func (d *chunkDecoder) decode(chunk []byte, atEOF bool) (string, error) {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String(), nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return out.String(), nil
		default:
			return "", err
		}
	}
}
