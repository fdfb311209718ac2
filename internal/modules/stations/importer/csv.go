package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"stationdb/internal/modules/stations/types"
)

const utf8BOM = "\ufeff"

// table is a fully read CSV file: header positions plus data rows.
type table struct {
	path  string
	index map[string]int
	rows  [][]string
	lines []int
}

// readTable reads the whole file at path and checks that every required
// column is present in the header. Extra columns are ignored.
func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w: empty file, no header", path, types.ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	index := makeHeaderIndex(header)
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", path, types.ErrMissingColumn, strings.Join(missing, ", "))
	}

	t := &table{path: path, index: index}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

// makeHeaderIndex maps trimmed column names to their position. The first
// occurrence of a duplicated name wins.
func makeHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

// row gives typed access to one data row; conversion failures carry the
// file, line and column of the offending cell.
type row struct {
	t *table
	i int
}

func (t *table) row(i int) row { return row{t: t, i: i} }

func (r row) str(col string) string {
	return r.t.rows[r.i][r.t.index[col]]
}

func (r row) float(col string) (float64, error) {
	raw := r.str(col)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, r.convErr(col, raw, err)
	}
	return v, nil
}

// date requires the zero-padded layout; "2010-1-5" is rejected.
func (r row) date(col string) (time.Time, error) {
	raw := r.str(col)
	d, err := time.Parse(types.DateLayout, raw)
	if err != nil {
		return time.Time{}, r.convErr(col, raw, err)
	}
	return d, nil
}

// text returns the cell as stored, an empty cell included.
func (r row) text(col string) *string {
	v := r.str(col)
	return &v
}

func (r row) convErr(col, raw string, err error) error {
	return &types.ConversionError{
		File:   r.t.path,
		Line:   r.t.lines[r.i],
		Column: col,
		Value:  raw,
		Err:    err,
	}
}
