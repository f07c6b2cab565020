// Package csvout implements the mandatory CSV output sink: one file per
// trading day, a fixed header, then one row per sampled time with 20
// shortest-round-trip float columns. Output is staged through a
// temporary path and only renamed into place on Commit.
package csvout

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/obfactors/engine/internal/floatfmt"
	"github.com/obfactors/engine/internal/rowset"
)

// Header is the fixed first line written to every day's output file.
const Header = "tradeTime,alpha_1,alpha_2,alpha_3,alpha_4,alpha_5,alpha_6,alpha_7,alpha_8,alpha_9,alpha_10," +
	"alpha_11,alpha_12,alpha_13,alpha_14,alpha_15,alpha_16,alpha_17,alpha_18,alpha_19,alpha_20\n"

// lineBufSize comfortably fits HHMMSS plus 20 comma-prefixed shortest
// floats.
const lineBufSize = 1024

// minBufferedSize is the minimum size of the buffered output adapter
// wrapping the underlying file.
const minBufferedSize = 1 << 20

// Handle is a writable destination that can be committed (persisted
// under its final name) or aborted (discarded) once all rows are
// flushed.
type Handle interface {
	io.Writer
	Commit() error
	Abort() error
}

// Sink creates a Handle for one trading day's output.
type Sink interface {
	Create(mmdd string) (Handle, error)
}

// FileSink writes "<MMDD>.csv" files under Dir, staged via a ".tmp"
// sibling and renamed into place on Commit. If Compress is set, the
// staged file is gzip-compressed (klauspost/compress, a drop-in
// replacement for the standard library's slower implementation) and
// named "<MMDD>.csv.gz" instead, so the mandatory ".csv" name is never
// silently repurposed to hold compressed bytes.
type FileSink struct {
	Dir      string
	Compress bool
}

func (s FileSink) Create(mmdd string) (Handle, error) {
	ext := ".csv"
	if s.Compress {
		ext = ".csv.gz"
	}
	final := filepath.Join(s.Dir, mmdd+ext)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("csvout: create %s: %w", tmp, err)
	}

	h := &fileHandle{f: f, tmpPath: tmp, finalPath: final}
	if s.Compress {
		h.gz = gzip.NewWriter(f)
	}
	return h, nil
}

type fileHandle struct {
	f         *os.File
	gz        *gzip.Writer
	tmpPath   string
	finalPath string
}

func (h *fileHandle) Write(p []byte) (int, error) {
	if h.gz != nil {
		return h.gz.Write(p)
	}
	return h.f.Write(p)
}

func (h *fileHandle) Commit() error {
	if h.gz != nil {
		if err := h.gz.Close(); err != nil {
			h.f.Close()
			return err
		}
	}
	if err := h.f.Close(); err != nil {
		return err
	}
	return os.Rename(h.tmpPath, h.finalPath)
}

func (h *fileHandle) Abort() error {
	if h.gz != nil {
		h.gz.Close()
	}
	h.f.Close()
	return os.Remove(h.tmpPath)
}

// Writer buffers rows for one trading day through a reusable line buffer,
// writing shortest-round-trip floats directly into it via floatfmt.
type Writer struct {
	handle Handle
	out    *bufio.Writer
	line   [lineBufSize]byte
}

// New creates the day's output handle via sink and wraps it with a
// >=1 MiB buffered writer.
func New(sink Sink, mmdd string) (*Writer, error) {
	h, err := sink.Create(mmdd)
	if err != nil {
		return nil, err
	}
	return &Writer{handle: h, out: bufio.NewWriterSize(h, minBufferedSize)}, nil
}

// WriteHeader writes the fixed header line. Call once, before any rows.
func (w *Writer) WriteHeader() error {
	_, err := w.out.WriteString(Header)
	return err
}

// WriteRow writes one HHMMSS row followed by 20 comma-prefixed factor
// values, terminated by a newline.
func (w *Writer) WriteRow(row *rowset.Row) error {
	pos := writeTime(w.line[:], 0, row.SecOfDay)
	for i := 0; i < rowset.FactorCount; i++ {
		w.line[pos] = ','
		pos++
		pos = floatfmt.AppendShortest(w.line[:], pos, row.Means[i])
	}
	w.line[pos] = '\n'
	pos++
	_, err := w.out.Write(w.line[:pos])
	return err
}

// WriteRows writes every row in order, typically the already
// secOfDay-sorted output of a day-merger's Finalize.
func (w *Writer) WriteRows(rows []rowset.Row) error {
	for i := range rows {
		if err := w.WriteRow(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Commit flushes the buffered writer and commits the underlying handle,
// making the output visible under its final name.
func (w *Writer) Commit() error {
	if err := w.out.Flush(); err != nil {
		w.handle.Abort()
		return err
	}
	return w.handle.Commit()
}

// Abort discards everything written so far; the final output path is
// never created.
func (w *Writer) Abort() error {
	return w.handle.Abort()
}

// writeTime writes secOfDay as zero-padded HHMMSS at buf[pos:] using the
// divmod-by-10 pattern, and returns the position just past it.
func writeTime(buf []byte, pos, secOfDay int) int {
	hh := secOfDay / 3600
	rem := secOfDay % 3600
	mm := rem / 60
	ss := rem % 60

	pos = append2(buf, pos, hh)
	pos = append2(buf, pos, mm)
	pos = append2(buf, pos, ss)
	return pos
}

func append2(buf []byte, pos, v int) int {
	buf[pos] = byte('0' + v/10)
	buf[pos+1] = byte('0' + v%10)
	return pos + 2
}
