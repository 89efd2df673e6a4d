// Package container decodes spreadsheet containers into tables and
// repairs damaged container archives.
package container

import (
	stdzip "archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrCorruptContainer is returned when a container cannot be decoded,
	// even after one repair attempt.
	ErrCorruptContainer = errors.New("unsupported or corrupt spreadsheet file")
	// ErrEncrypted is returned for password protected workbooks.
	ErrEncrypted = errors.New("spreadsheet is encrypted or password protected")
)

// maxEntryBytes caps the inflated size of a single archive entry.
const maxEntryBytes = 1 << 30

const (
	localHeaderLen   = 30
	flagDataDesc     = 0x8
	readAheadSlack   = 16
	sizeUnknownZip64 = 0xFFFFFFFF
)

var localHeaderSig = []byte("PK\x03\x04")

var corruptionMarkers = []string{
	"bad compressed size",
	"invalid archive",
	"not a valid zip file",
	"truncated",
	"unexpected eof",
	"checksum",
	"corrupt input",
}

var protectionMarkers = []string{"password", "encrypt", "protected"}

// oleSignature starts every compound file, including encrypted workbooks.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// encryptionInfoName is the UTF-16 stream name present in encrypted packages.
var encryptionInfoName = mustUTF16("EncryptionInfo")

func mustUTF16(s string) []byte {
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}

// IsArchiveCorruption reports whether err indicates a damaged archive
// rather than a malformed workbook.
func IsArchiveCorruption(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, stdzip.ErrFormat) || errors.Is(err, stdzip.ErrChecksum) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), corruptionMarkers)
}

// IsProtected reports whether a decode failure comes from a password
// protected workbook.
func IsProtected(err error, data []byte) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, excelize.ErrWorkbookPassword) {
		return true
	}
	// A wrong key decrypts to noise, so the failure may surface as any
	// archive error. The compound file layout is the reliable signal.
	if bytes.HasPrefix(data, oleSignature) && bytes.Contains(data, encryptionInfoName) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), protectionMarkers)
}

type entry struct {
	name    string
	modTime uint16
	modDate uint16
	data    []byte
}

// Repack rebuilds a container archive. Every entry is inflated and
// written again with a fresh Deflate pass. Entries whose only defect is a
// CRC mismatch are kept. When the central directory is unreadable the
// entries are recovered from their local headers instead.
func Repack(data []byte) ([]byte, error) {
	entries, err := readEntries(data)
	if err != nil {
		return nil, fmt.Errorf("%w: repair failed: %v", ErrCorruptContainer, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:         e.name,
			Method:       zip.Deflate,
			ModifiedTime: e.modTime,
			ModifiedDate: e.modDate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

func readEntries(data []byte) ([]entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return scanLocalHeaders(data)
	}

	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		body, err := readEntry(f)
		if err != nil {
			// The directory lies about this entry; trust the local headers.
			return scanLocalHeaders(data)
		}
		entries = append(entries, entry{
			name:    f.Name,
			modTime: f.ModifiedTime,
			modDate: f.ModifiedDate,
			data:    body,
		})
	}
	return entries, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
	if errors.Is(err, zip.ErrChecksum) {
		return body, nil
	}
	return body, err
}

// scanLocalHeaders walks the archive front to back and recovers every
// entry whose local header and data are intact.
func scanLocalHeaders(data []byte) ([]entry, error) {
	var entries []entry
	pos := 0

	for pos < len(data) {
		i := bytes.Index(data[pos:], localHeaderSig)
		if i < 0 {
			break
		}
		start := pos + i
		if start+localHeaderLen > len(data) {
			break
		}

		h := data[start : start+localHeaderLen]
		flags := binary.LittleEndian.Uint16(h[6:])
		method := binary.LittleEndian.Uint16(h[8:])
		modTime := binary.LittleEndian.Uint16(h[10:])
		modDate := binary.LittleEndian.Uint16(h[12:])
		csize := binary.LittleEndian.Uint32(h[18:])
		nameLen := int(binary.LittleEndian.Uint16(h[26:]))
		extraLen := int(binary.LittleEndian.Uint16(h[28:]))

		dataStart := start + localHeaderLen + nameLen + extraLen
		if dataStart > len(data) {
			break
		}
		name := string(data[start+localHeaderLen : start+localHeaderLen+nameLen])

		sizeKnown := flags&flagDataDesc == 0 && csize != sizeUnknownZip64
		body, consumed, err := inflateEntry(data[dataStart:], method, sizeKnown, int(csize))
		if err != nil {
			pos = start + len(localHeaderSig)
			continue
		}
		if name != "" && !strings.HasSuffix(name, "/") {
			entries = append(entries, entry{name: name, modTime: modTime, modDate: modDate, data: body})
		}

		next := dataStart + consumed - readAheadSlack
		if next <= start {
			next = start + len(localHeaderSig)
		}
		pos = next
	}

	if len(entries) == 0 {
		return nil, zip.ErrFormat
	}
	return entries, nil
}

func inflateEntry(b []byte, method uint16, sizeKnown bool, csize int) ([]byte, int, error) {
	switch method {
	case zip.Store:
		if !sizeKnown || csize > len(b) {
			return nil, 0, zip.ErrFormat
		}
		return append([]byte(nil), b[:csize]...), csize, nil
	case zip.Deflate:
		src := b
		if sizeKnown && csize <= len(b) {
			src = b[:csize]
		}
		br := bytes.NewReader(src)
		fr := flate.NewReader(br)
		defer func() { _ = fr.Close() }()

		body, err := io.ReadAll(io.LimitReader(fr, maxEntryBytes))
		if err != nil {
			return nil, 0, err
		}
		return body, len(src) - br.Len(), nil
	default:
		return nil, 0, zip.ErrAlgorithm
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
