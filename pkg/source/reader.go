// Package source reads the tab-separated exports that feed the staging tables.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// Row is one data record converted to staging values: LineColumn first, then
// one value per declared column. Values are nil, string or time.Time.
type Row []any

// Reader streams the records of one export in file order.
type Reader struct {
	spec   models.SourceSpec
	name   string
	closer io.Closer
	csv    *csv.Reader
	index  []int
	line   int64
}

// Open opens path and validates its header against spec. Every expected
// column absent from the header is reported at once; extra columns are ignored.
func Open(path string, spec models.SourceSpec) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &apperrors.MissingSourceFileError{Path: path}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	r, err := newReader(f, filepath.Base(path), spec)
	if err != nil {
		f.Close()
		var mismatch *apperrors.SchemaMismatchError
		if errors.As(err, &mismatch) {
			mismatch.Path = path
		}
		return nil, err
	}
	r.closer = f
	return r, nil
}

func newReader(in io.Reader, name string, spec models.SourceSpec) (*Reader, error) {
	// BOMOverride strips a leading UTF-8 byte-order mark and passes plain UTF-8 through.
	decoded := transform.NewReader(in, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	parser := csv.NewReader(decoded)
	parser.Comma = '\t'
	parser.LazyQuotes = true
	parser.ReuseRecord = true
	parser.FieldsPerRecord = -1

	header, err := parser.Read()
	if err == io.EOF {
		return nil, &apperrors.SchemaMismatchError{Path: name, Missing: sortedCopy(spec.Headers())}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	index := make([]int, len(spec.Columns))
	var missing []string
	for i, c := range spec.Columns {
		pos, ok := positions[c.Header]
		if !ok {
			missing = append(missing, c.Header)
			continue
		}
		index[i] = pos
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &apperrors.SchemaMismatchError{Path: name, Missing: missing}
	}

	return &Reader{spec: spec, name: name, csv: parser, index: index}, nil
}

// Next returns the next record, or io.EOF after the last one.
// A field absent from a short record is nil. A non-empty timestamp that does
// not parse is a ValueCoercionError.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s after line %d: %w", r.name, r.line, err)
	}
	r.line++

	row := make(Row, 0, len(r.spec.Columns)+1)
	row = append(row, r.line)
	for i, c := range r.spec.Columns {
		pos := r.index[i]
		if pos >= len(record) {
			row = append(row, nil)
			continue
		}
		value := record[pos]

		switch c.Kind {
		case models.ColumnTimestamp:
			ts, err := models.ParseNullableTimestamp(models.FieldRef{Source: r.name, Line: r.line, Column: c.Header}, value)
			if err != nil {
				return nil, err
			}
			if ts == nil {
				row = append(row, nil)
			} else {
				row = append(row, *ts)
			}
		default:
			row = append(row, value)
		}
	}
	return row, nil
}

// ReadBatch reads up to size records. It returns io.EOF only when no
// records remain; a short final batch is returned with a nil error.
func (r *Reader) ReadBatch(size int) ([][]any, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	batch := make([][]any, 0, size)
	for len(batch) < size {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, row)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Line returns the number of data records read so far.
func (r *Reader) Line() int64 {
	return r.line
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
