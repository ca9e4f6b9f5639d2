// Package stations reads the tabular station export. The table is CSV with
// a header row; columns are located by name so the export's column order does
// not matter.
package stations

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/JYF/edmap/internal/model"
	"github.com/JYF/edmap/internal/util"
)

// Required header columns.
const (
	colName   = "Name"
	colSystem = "System Name"
	colType   = "Type"
)

// Reader streams StationRecords from a CSV file in row order.
type Reader struct {
	path string
}

// NewReader creates a reader over the station table at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Each streams every data row to fn, preserving input order. Field values
// are whitespace-trimmed. A missing file or a header without the required
// columns is fatal.
func (r *Reader) Each(fn func(model.StationRecord) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("error opening station table %s: %w", r.path, err)
	}
	defer func() { _ = f.Close() }()

	return Scan(f, fn)
}

// Scan streams station rows from an already-open table.
func Scan(src io.Reader, fn func(model.StationRecord) error) error {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1 // ragged exports happen; missing cells become empty fields

	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("station table is empty")
	}
	if err != nil {
		return fmt.Errorf("error reading station table header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[util.TrimField(name)] = i
	}
	for _, required := range []string{colName, colSystem, colType} {
		if _, ok := cols[required]; !ok {
			return fmt.Errorf("station table is missing required column %q", required)
		}
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading station table row: %w", err)
		}

		rec := model.StationRecord{
			Name:        field(row, cols[colName]),
			SystemName:  field(row, cols[colSystem]),
			StationType: field(row, cols[colType]),
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return util.TrimField(row[i])
}
