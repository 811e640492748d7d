package candidate

import (
	"fmt"
	"sort"
)

// Frame is an in-memory columnar Table. All columns share one length.
type Frame struct {
	length  int
	columns map[string][]float64
}

// NewFrame builds a Frame from named columns. Columns are copied.
func NewFrame(columns map[string][]float64) (*Frame, error) {
	f := &Frame{length: -1, columns: make(map[string][]float64, len(columns))}
	for _, name := range sortedNames(columns) {
		col := columns[name]
		if f.length >= 0 && len(col) != f.length {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(col), f.length)
		}
		f.length = len(col)
		f.columns[name] = append([]float64(nil), col...)
	}
	if f.length < 0 {
		f.length = 0
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.length }

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, fmt.Errorf("no column %q (have %v)", name, sortedNames(f.columns))
	}
	return append([]float64(nil), col...), nil
}

func sortedNames(columns map[string][]float64) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
