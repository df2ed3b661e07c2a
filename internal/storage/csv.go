package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/sim"
)

var trajectoryHeader = []string{"t", "sp", "y", "u", "d", "valve_position", "valve_output"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func WriteTrajectoryCSV(w io.Writer, tr sim.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trajectoryHeader); err != nil {
		return err
	}
	cols := trajectoryColumns(&tr)
	row := make([]string, len(cols))
	for i := range tr.T {
		for j, col := range cols {
			row[j] = formatFloat((*col)[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func trajectoryColumns(tr *sim.Trajectory) []*[]float64 {
	return []*[]float64{&tr.T, &tr.SP, &tr.Y, &tr.U, &tr.D, &tr.Position, &tr.Flow}
}

// ReadTrajectoryCSV reads what WriteTrajectoryCSV wrote. Columns are
// matched by header name; missing ones stay empty.
func ReadTrajectoryCSV(r io.Reader) (sim.Trajectory, error) {
	var tr sim.Trajectory
	header, rows, err := readTable(r)
	if err != nil {
		return tr, err
	}
	cols := trajectoryColumns(&tr)
	for j, name := range trajectoryHeader {
		idx, ok := header[name]
		if !ok {
			continue
		}
		*cols[j] = make([]float64, len(rows))
		for i, row := range rows {
			(*cols[j])[i] = row[idx]
		}
	}
	return tr, nil
}

// ReadSeries reads a step test from CSV with columns t, u and y. Column
// names are case-insensitive and may appear in any order; "time", "op" and
// "pv" are accepted as aliases.
func ReadSeries(r io.Reader) (dynamo.Series, error) {
	var s dynamo.Series
	header, rows, err := readTable(r)
	if err != nil {
		return s, err
	}
	idx := make(map[string]int, 3)
	for name, aliases := range map[string][]string{
		"t": {"t", "time"},
		"u": {"u", "op", "mv"},
		"y": {"y", "pv", "cv"},
	} {
		for _, a := range aliases {
			if i, ok := header[a]; ok {
				idx[name] = i
				break
			}
		}
		if _, ok := idx[name]; !ok {
			return s, fmt.Errorf("%w: missing column %q", dynamo.ErrInvalidParameter, name)
		}
	}

	s.T = make([]float64, len(rows))
	s.U = make([]float64, len(rows))
	s.Y = make([]float64, len(rows))
	for i, row := range rows {
		s.T[i] = row[idx["t"]]
		s.U[i] = row[idx["u"]]
		s.Y[i] = row[idx["y"]]
	}
	return s, s.Validate()
}

func LoadSeries(path string) (dynamo.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return dynamo.Series{}, err
	}
	defer f.Close()
	return ReadSeries(f)
}

func WriteSeries(w io.Writer, s dynamo.Series) error {
	if err := s.Validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "u", "y"}); err != nil {
		return err
	}
	for i := range s.T {
		if err := cw.Write([]string{formatFloat(s.T[i]), formatFloat(s.U[i]), formatFloat(s.Y[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readTable parses a numeric CSV with a header row. Blank lines are
// skipped; any other unparsable cell is an error with its line number.
func readTable(r io.Reader) (map[string]int, [][]float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty csv", dynamo.ErrInsufficientData)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	rows := make([][]float64, 0, len(records)-1)
	for n, record := range records[1:] {
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(records[0]) {
			return nil, nil, fmt.Errorf("%w: line %d has %d fields, want %d",
				dynamo.ErrLengthMismatch, n+2, len(record), len(records[0]))
		}
		row := make([]float64, len(record))
		for i, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d column %d: %w", n+2, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
