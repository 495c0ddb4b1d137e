package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DimaK415/rex/resource"
)

func sampleTable() *Table {
	return &Table{
		Index:   []int{0, 1, 2},
		Columns: []string{"mean", "Jan_mean"},
		Rows: [][]float64{
			{1.5, 2.25},
			{3.125, 4},
			{5, 6.0625},
		},
	}
}

func TestTableCSVRoundTrip(t *testing.T) {
	want := sampleTable()
	var buf bytes.Buffer
	if err := want.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got.Index) != len(want.Index) || len(got.Columns) != len(want.Columns) {
		t.Fatalf("shape mismatch: %+v vs %+v", got, want)
	}
	for j, c := range want.Columns {
		if got.Columns[j] != c {
			t.Fatalf("column %d: expected %q, got %q", j, c, got.Columns[j])
		}
	}
	for i := range want.Index {
		if got.Index[i] != want.Index[i] {
			t.Fatalf("gid %d: expected %d, got %d", i, want.Index[i], got.Index[i])
		}
		for j := range want.Columns {
			if got.Rows[i][j] != want.Rows[i][j] {
				t.Fatalf("row %d col %d: expected %v, got %v",
					i, j, want.Rows[i][j], got.Rows[i][j])
			}
		}
	}
}

func TestTableWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleTable().WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var out map[string]map[string]float64
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if out["mean"]["1"] != 3.125 {
		t.Errorf("expected mean[1] = 3.125, got %v", out["mean"]["1"])
	}
	if out["Jan_mean"]["2"] != 6.0625 {
		t.Errorf("expected Jan_mean[2] = 6.0625, got %v", out["Jan_mean"]["2"])
	}
}

func TestTableSave(t *testing.T) {
	dir := t.TempDir()

	// A directory target derives the filename from the source path and
	// dataset, with wildcard characters stripped.
	if err := sampleTable().Save("/data/wtk_*.nc", "windspeed", dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "wtk__windspeed.csv"))
	if err != nil {
		t.Fatalf("expected derived csv file: %v", err)
	}
	defer f.Close()
	got, err := ReadCSV(f)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got.Index) != 3 {
		t.Errorf("expected 3 rows, got %d", len(got.Index))
	}

	jsonPath := filepath.Join(dir, "out.json")
	if err := sampleTable().Save("/data/wtk_2013.nc", "windspeed", jsonPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(jsonPath); err != nil {
		t.Errorf("expected json file: %v", err)
	}
}

func TestTableSaveUnsupportedFormat(t *testing.T) {
	err := sampleTable().Save("/data/wtk_2013.nc", "windspeed", filepath.Join(t.TempDir(), "out.txt"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSortByGid(t *testing.T) {
	table := &Table{
		Index:   []int{5, 1, 3},
		Columns: []string{"mean"},
		Rows:    [][]float64{{50}, {10}, {30}},
	}
	table.sortByGid()
	want := []int{1, 3, 5}
	for i, gid := range want {
		if table.Index[i] != gid {
			t.Fatalf("expected index %v, got %v", want, table.Index)
		}
		if table.Rows[i][0] != float64(gid*10) {
			t.Fatalf("row %d: expected %v, got %v", i, gid*10, table.Rows[i][0])
		}
	}
}

func TestJoinMetaInnerJoin(t *testing.T) {
	meta := []resource.SiteMeta{
		{Gid: 0, Latitude: 40, Longitude: -105, Elevation: 1600, Timezone: -7},
		{Gid: 1, Latitude: 41, Longitude: -106, Elevation: 1700, Timezone: -7},
	}
	table := &Table{
		Index:   []int{0, 1, 9},
		Columns: []string{"mean"},
		Rows:    [][]float64{{1}, {2}, {3}},
	}

	joined := table.joinMeta(meta, true)
	if len(joined.Index) != 2 {
		t.Fatalf("expected out-of-range gid dropped, got index %v", joined.Index)
	}
	wantCols := []string{"latitude", "longitude", "mean"}
	if len(joined.Columns) != len(wantCols) {
		t.Fatalf("expected columns %v, got %v", wantCols, joined.Columns)
	}
	for j, c := range wantCols {
		if joined.Columns[j] != c {
			t.Fatalf("expected columns %v, got %v", wantCols, joined.Columns)
		}
	}
	if joined.Rows[1][0] != 41 || joined.Rows[1][2] != 2 {
		t.Errorf("unexpected joined row: %v", joined.Rows[1])
	}

	full := table.joinMeta(meta, false)
	if len(full.Columns) != 5 {
		t.Fatalf("expected 5 columns with full metadata, got %v", full.Columns)
	}
	if full.Rows[0][2] != 1600 || full.Rows[0][3] != -7 {
		t.Errorf("unexpected full-meta row: %v", full.Rows[0])
	}
}

func TestConcatTablesColumnMismatch(t *testing.T) {
	a := &Table{Index: []int{0}, Columns: []string{"mean"}, Rows: [][]float64{{1}}}
	b := &Table{Index: []int{1}, Columns: []string{"mean", "std"}, Rows: [][]float64{{2, 3}}}
	if _, err := concatTables([]*Table{a, b}); err == nil {
		t.Fatal("expected error for mismatched columns")
	}
	got, err := concatTables([]*Table{a, a})
	if err != nil {
		t.Fatalf("concatTables failed: %v", err)
	}
	if len(got.Index) != 2 {
		t.Errorf("expected 2 rows, got %d", len(got.Index))
	}
}
