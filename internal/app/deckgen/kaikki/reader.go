package kaikki

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// DefaultMaxLineSize caps a single JSONL line (16 MB).
// Some Kaikki lines (e.g. "set", "run") exceed 1 MB.
const DefaultMaxLineSize = 16 << 20

const readBufferSize = 64 * 1024

// Batch is a run of consecutive non-blank input lines.
type Batch struct {
	// Index is the 0-based batch number; batches are produced in order.
	Index int
	// FirstLine is the physical line index of the first line in the batch.
	FirstLine int
	// LineIdx holds the physical line index of every line.
	LineIdx []int
	Lines   [][]byte
	// TooLong counts lines in this batch that exceeded the line size cap.
	// They were discarded unread.
	TooLong int
	// Offset is the number of input bytes consumed after this batch.
	Offset int64
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// BatchLines is the number of lines per batch (minimum 1).
	BatchLines int
	// Limit caps the number of non-blank lines read (0 = all).
	Limit int
	// MaxLineSize caps one line in bytes (0 = DefaultMaxLineSize).
	MaxLineSize int
}

// Reader is a lazy, single-pass sequence of line batches over a JSONL
// stream. Restart by opening the source again.
type Reader struct {
	sc     *lineScanner
	size   int64
	closer io.Closer
}

// NewReader wraps r.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{sc: newLineScanner(r, opts)}
}

// Open opens the dump at path. The caller must Close the reader.
func Open(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	rd := NewReader(f, opts)
	rd.closer = f
	if info, err := f.Stat(); err == nil {
		rd.size = info.Size()
	}
	return rd, nil
}

// Size returns the size of the opened file, or 0 when unknown.
func (r *Reader) Size() int64 { return r.size }

// Batches yields line batches in source order until the input is exhausted,
// the limit is reached or a read error occurs. Check Err afterwards.
func (r *Reader) Batches() iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for {
			b, ok := r.sc.next()
			if !ok || !yield(b) {
				return
			}
		}
	}
}

// Err returns the read error that ended iteration, if any.
func (r *Reader) Err() error { return r.sc.err }

// Close releases the underlying file when the reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// lineScanner splits JSONL input into batches of owned lines.
// Blank lines are skipped. Lines above maxLine are drained to their
// newline and reported through Batch.TooLong.
type lineScanner struct {
	r         *bufio.Reader
	size      int
	limit     int
	maxLine   int
	seen      int
	physical  int
	batches   int
	offset    int64
	exhausted bool
	err       error
}

func newLineScanner(r io.Reader, opts ReaderOptions) *lineScanner {
	s := &lineScanner{
		r:       bufio.NewReaderSize(r, readBufferSize),
		size:    opts.BatchLines,
		limit:   opts.Limit,
		maxLine: opts.MaxLineSize,
	}
	if s.size <= 0 {
		s.size = 1
	}
	if s.maxLine <= 0 {
		s.maxLine = DefaultMaxLineSize
	}
	return s
}

func (s *lineScanner) next() (Batch, bool) {
	if s.exhausted {
		return Batch{}, false
	}

	b := Batch{Index: s.batches, FirstLine: -1}
	for len(b.Lines)+b.TooLong < s.size {
		if s.limit > 0 && s.seen >= s.limit {
			s.exhausted = true
			break
		}
		raw, tooLong, err := s.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = fmt.Errorf("read line %d: %w", s.physical+1, err)
			}
			s.exhausted = true
			break
		}

		idx := s.physical
		s.physical++

		if tooLong {
			s.seen++
			b.TooLong++
			if b.FirstLine < 0 {
				b.FirstLine = idx
			}
			continue
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		s.seen++

		if b.FirstLine < 0 {
			b.FirstLine = idx
		}
		b.LineIdx = append(b.LineIdx, idx)
		b.Lines = append(b.Lines, line)
	}

	if len(b.Lines) == 0 && b.TooLong == 0 {
		return Batch{}, false
	}
	b.Offset = s.offset
	s.batches++
	return b, true
}

// readLine returns the next line without its terminator. A line longer
// than maxLine is consumed up to its newline and reported as tooLong.
// io.EOF is returned only when no bytes remain.
func (s *lineScanner) readLine() (line []byte, tooLong bool, err error) {
	var (
		buf  []byte
		read bool
	)
	for {
		chunk, err := s.r.ReadSlice('\n')
		s.offset += int64(len(chunk))
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong {
			if len(buf)+len(chunk) > s.maxLine+1 {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			return bytes.TrimSuffix(buf, []byte{'\n'}), tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if !read {
				return nil, false, io.EOF
			}
			if !tooLong && len(buf) > s.maxLine {
				return nil, true, nil
			}
			return buf, tooLong, nil
		default:
			return nil, false, err
		}
	}
}

// DecodeBatch decodes every line of b in order, returning the senses
// and the per-line statistics. Bad lines are counted and skipped.
func (d Decoder) DecodeBatch(b Batch) ([]domain.RawSense, Stats) {
	var (
		stats  Stats
		senses []domain.RawSense
	)
	stats.Lines += b.TooLong
	stats.Malformed += b.TooLong
	for i, line := range b.Lines {
		stats.Lines++
		out, err := d.Decode(line, b.LineIdx[i])
		switch {
		case err == nil:
		case errors.Is(err, ErrForeign):
			stats.Foreign++
			continue
		case errors.Is(err, domain.ErrMissingHeadword):
			stats.MissingHeadword++
			continue
		default:
			stats.Malformed++
			continue
		}
		stats.Senses += len(out)
		senses = append(senses, out...)
	}
	return senses, stats
}
