package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/DimaK415/rex/resource"
)

// Table is a statistics result: one row per site gid, one column per
// (statistic, temporal group) combination, optionally prefixed by site
// metadata columns after the merge step.
type Table struct {
	Index   []int
	Columns []string
	Rows    [][]float64
}

// Column returns the values of a named column in index order.
func (t *Table) Column(name string) ([]float64, error) {
	for j, c := range t.Columns {
		if c == name {
			out := make([]float64, len(t.Rows))
			for i, row := range t.Rows {
				out[i] = row[j]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("no column %q", name)
}

// addColumn appends a column; the table's index must already be set.
func (t *Table) addColumn(name string, values []float64) {
	t.Columns = append(t.Columns, name)
	if t.Rows == nil {
		t.Rows = make([][]float64, len(t.Index))
	}
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
}

// concatTables stacks per-slice tables with identical columns.
func concatTables(parts []*Table) (*Table, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("no result tables to merge")
	}
	out := &Table{Columns: parts[0].Columns}
	for _, p := range parts {
		if len(p.Columns) != len(out.Columns) {
			return nil, fmt.Errorf("result tables disagree on columns: %d vs %d",
				len(p.Columns), len(out.Columns))
		}
		out.Index = append(out.Index, p.Index...)
		out.Rows = append(out.Rows, p.Rows...)
	}
	return out, nil
}

// sortByGid restores deterministic gid-ascending order after unordered
// worker completion.
func (t *Table) sortByGid() {
	order := make([]int, len(t.Index))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return t.Index[order[a]] < t.Index[order[b]]
	})

	idx := make([]int, len(t.Index))
	rows := make([][]float64, len(t.Rows))
	for i, o := range order {
		idx[i] = t.Index[o]
		rows[i] = t.Rows[o]
	}
	t.Index = idx
	t.Rows = rows
}

// joinMeta inner-joins the table against site metadata, prepending either
// lat/lon columns or the full metadata. Gids absent from the metadata are
// dropped.
func (t *Table) joinMeta(meta []resource.SiteMeta, latLonOnly bool) *Table {
	metaCols := []string{"latitude", "longitude"}
	if !latLonOnly {
		metaCols = append(metaCols, "elevation", "timezone")
	}

	out := &Table{Columns: append(metaCols, t.Columns...)}
	for i, gid := range t.Index {
		if gid < 0 || gid >= len(meta) {
			continue
		}
		m := meta[gid]
		row := []float64{m.Latitude, m.Longitude}
		if !latLonOnly {
			row = append(row, m.Elevation, float64(m.Timezone))
		}
		out.Index = append(out.Index, gid)
		out.Rows = append(out.Rows, append(row, t.Rows[i]...))
	}
	return out
}

// WriteCSV writes the table with a gid index column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"gid"}, t.Columns...)); err != nil {
		return err
	}
	for i, gid := range t.Index {
		record := make([]string, 0, len(t.Columns)+1)
		record = append(record, strconv.Itoa(gid))
		for _, v := range t.Rows[i] {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a table written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 1 || records[0][0] != "gid" {
		return nil, fmt.Errorf("not a statistics table: missing gid header")
	}

	t := &Table{Columns: records[0][1:]}
	for _, rec := range records[1:] {
		gid, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("parsing gid %q: %w", rec[0], err)
		}
		row := make([]float64, len(rec)-1)
		for j, s := range rec[1:] {
			row[j], err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing %q: %w", s, err)
			}
		}
		t.Index = append(t.Index, gid)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteJSON writes the table column-oriented: column name to a gid-keyed
// value map.
func (t *Table) WriteJSON(w io.Writer) error {
	out := make(map[string]map[string]float64, len(t.Columns))
	for j, col := range t.Columns {
		vals := make(map[string]float64, len(t.Index))
		for i, gid := range t.Index {
			vals[strconv.Itoa(gid)] = t.Rows[i][j]
		}
		out[col] = vals
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// resolveOutPath turns an output target into a concrete file path: a
// directory derives the filename from the source path and dataset name, and
// wildcard characters are stripped. Anything but a .csv or .json suffix is
// unsupported.
func resolveOutPath(sourcePath, dataset, outPath string) (string, error) {
	if info, err := os.Stat(outPath); err == nil && info.IsDir() {
		base := filepath.Base(sourcePath)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if dataset != "" {
			base += "_" + dataset
		}
		outPath = filepath.Join(outPath, base+".csv")
	}
	outPath = strings.ReplaceAll(outPath, "*", "")

	switch filepath.Ext(outPath) {
	case ".csv", ".json":
		return outPath, nil
	}
	return "", fmt.Errorf("%w: expected a directory, .csv, or .json path, got %q",
		ErrUnsupportedFormat, outPath)
}

// Save writes the table to outPath, which may be a directory (a .csv
// filename is derived from sourcePath and dataset), a .csv path, or a .json
// path.
func (t *Table) Save(sourcePath, dataset, outPath string) error {
	resolved, err := resolveOutPath(sourcePath, dataset, outPath)
	if err != nil {
		return err
	}
	f, err := os.Create(resolved)
	if err != nil {
		return fmt.Errorf("creating %s: %w", resolved, err)
	}
	defer f.Close()

	if filepath.Ext(resolved) == ".json" {
		if err := t.WriteJSON(f); err != nil {
			return fmt.Errorf("writing %s: %w", resolved, err)
		}
		return nil
	}
	if err := t.WriteCSV(f); err != nil {
		return fmt.Errorf("writing %s: %w", resolved, err)
	}
	return nil
}
