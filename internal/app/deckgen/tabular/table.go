package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

// Header is the fixed column layout.
var Header = []string{
	"Headword",
	"Definitions",
	"IPA",
	"Etymology",
	"Forms",
	"Hyphenation",
	"Audio",
	"Rank",
}

// ErrBadHeader is returned by Reader when the first row is not Header.
var ErrBadHeader = errors.New("unexpected table header")

// Row renders one entry in Header column order.
func Row(e domain.Entry) []string {
	return []string{
		e.Headword,
		EncodeDefinitions(e.POSOrder, e.SensesByPOS),
		e.IPA,
		e.Etymology,
		EncodeForms(e.Forms),
		encodeHyphenation(e.Hyphenation),
		e.Audio,
		e.Rank.String(),
	}
}

// Write emits the header and one row per entry, in the given order.
// Callers sort with Sort first.
func Write(w io.Writer, entries []domain.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range entries {
		if err := cw.Write(Row(entries[i])); err != nil {
			return fmt.Errorf("write row %q: %w", entries[i].Headword, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFile writes the table to path atomically: rows go to a temporary
// file in the same directory which replaces path only on success.
func WriteFile(path string, entries []domain.Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := Write(bw, entries); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	committed = true
	return nil
}

// Reader decodes rows written by Write back into entries.
type Reader struct {
	cr     *csv.Reader
	header bool
	row    int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true
	return &Reader{cr: cr}
}

// Read returns the next entry, or io.EOF after the last row.
func (r *Reader) Read() (domain.Entry, error) {
	if !r.header {
		rec, err := r.cr.Read()
		if err != nil {
			if err == io.EOF {
				return domain.Entry{}, fmt.Errorf("missing header: %w", ErrBadHeader)
			}
			return domain.Entry{}, fmt.Errorf("read header: %w", err)
		}
		if !slices.Equal(rec, Header) {
			return domain.Entry{}, fmt.Errorf("%v: %w", rec, ErrBadHeader)
		}
		r.header = true
	}

	rec, err := r.cr.Read()
	if err == io.EOF {
		return domain.Entry{}, io.EOF
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("read row: %w", err)
	}
	r.row++

	e, err := decodeRow(rec)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("row %d: %w", r.row, err)
	}
	return e, nil
}

func decodeRow(rec []string) (domain.Entry, error) {
	order, byPOS, err := DecodeDefinitions(rec[1])
	if err != nil {
		return domain.Entry{}, err
	}
	forms, err := DecodeForms(rec[4])
	if err != nil {
		return domain.Entry{}, err
	}
	rank, err := decodeRank(rec[7])
	if err != nil {
		return domain.Entry{}, err
	}

	return domain.Entry{
		Key:         domain.NormalizeHeadword(rec[0]),
		Headword:    rec[0],
		POSOrder:    order,
		SensesByPOS: byPOS,
		IPA:         rec[2],
		Etymology:   rec[3],
		Forms:       forms,
		Hyphenation: decodeHyphenation(rec[5]),
		Audio:       rec[6],
		Rank:        rank,
	}, nil
}

// ReadAll decodes every row of r.
func ReadAll(r io.Reader) ([]domain.Entry, error) {
	rd := NewReader(r)
	var out []domain.Entry
	for {
		e, err := rd.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}
