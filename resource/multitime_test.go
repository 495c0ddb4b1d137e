package resource

import (
	"errors"
	"testing"
	"time"
)

func twoYearComposite(t *testing.T) (*MultiTime, [][]float64) {
	t.Helper()
	f1 := memFile("wtk_2012.nc", time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), 48, 5, 0)
	f2 := memFile("wtk_2013.nc", time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), 48, 5, 1000)
	mt, err := NewMultiTime(f1, f2)
	if err != nil {
		t.Fatalf("NewMultiTime failed: %v", err)
	}
	want := append(rampData(48, 5, 0), rampData(48, 5, 1000)...)
	return mt, want
}

func TestMultiTimeIndexConcat(t *testing.T) {
	mt, _ := twoYearComposite(t)
	defer mt.Close()

	ti := mt.TimeIndex()
	if len(ti) != 96 {
		t.Fatalf("expected 96 composite timestamps, got %d", len(ti))
	}
	if !ti[0].Equal(time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first timestamp %v", ti[0])
	}
	if !ti[48].Equal(time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected boundary timestamp %v", ti[48])
	}
	for i := 1; i < len(ti); i++ {
		if !ti[i].After(ti[i-1]) {
			t.Fatalf("composite index not increasing at row %d", i)
		}
	}
}

func TestMultiTimeOverlapRejected(t *testing.T) {
	start := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	f1 := memFile("a.nc", start, 48, 5, 0)
	f2 := memFile("b.nc", start.Add(24*time.Hour), 48, 5, 1000)
	_, err := NewMultiTime(f1, f2)
	if !errors.Is(err, ErrTimeOverlap) {
		t.Fatalf("expected ErrTimeOverlap, got %v", err)
	}
}

func TestMultiTimeReadFullMatchesConcat(t *testing.T) {
	mt, want := twoYearComposite(t)
	defer mt.Close()

	got, err := mt.Read("windspeed", All(), All())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !matrixEqual(got, want) {
		t.Error("full composite read does not match concatenated files")
	}
}

func TestMultiTimeReadCrossesBoundary(t *testing.T) {
	mt, want := twoYearComposite(t)
	defer mt.Close()

	got, err := mt.Read("windspeed", Span(40, 56), All())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !matrixEqual(got, want[40:56]) {
		t.Error("boundary-crossing span does not match concatenated files")
	}
}

func TestMultiTimeReadSingleFilePassthrough(t *testing.T) {
	mt, want := twoYearComposite(t)
	defer mt.Close()

	got, err := mt.Read("windspeed", Span(50, 60), At(2))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i, row := range got {
		if len(row) != 1 || row[0] != want[50+i][2] {
			t.Fatalf("row %d: expected %v, got %v", i, want[50+i][2], row)
		}
	}
}

func TestMultiTimeReadSiteList(t *testing.T) {
	mt, want := twoYearComposite(t)
	defer mt.Close()

	got, err := mt.Read("windspeed", All(), Pick(4, 0, 2))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 96 {
		t.Fatalf("expected 96 rows, got %d", len(got))
	}
	for i, row := range got {
		exp := []float64{want[i][4], want[i][0], want[i][2]}
		for j := range exp {
			if row[j] != exp[j] {
				t.Fatalf("row %d: expected %v, got %v", i, exp, row)
			}
		}
	}
}

func TestMultiTimeReadTimeList(t *testing.T) {
	mt, want := twoYearComposite(t)
	defer mt.Close()

	rows := []int{3, 47, 48, 90}
	got, err := mt.Read("windspeed", Pick(rows...), At(1))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i, r := range rows {
		if got[i][0] != want[r][1] {
			t.Errorf("row %d: expected %v, got %v", r, want[r][1], got[i][0])
		}
	}
}

func TestMultiTimeProperties(t *testing.T) {
	mt, _ := twoYearComposite(t)
	defer mt.Close()

	p, err := mt.Properties("windspeed")
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if p.Shape != [2]int{96, 5} {
		t.Errorf("expected composite shape [96 5], got %v", p.Shape)
	}
}

func TestOpenMultiTimePaths(t *testing.T) {
	open := func(path string) (Handler, error) {
		switch path {
		case "wtk_2012.nc":
			return memFile(path, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), 24, 3, 0), nil
		case "wtk_2013.nc":
			return memFile(path, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), 24, 3, 100), nil
		}
		return nil, errors.New("unexpected path " + path)
	}
	mt, err := OpenMultiTimePaths([]string{"wtk_2012.nc", "wtk_2013.nc"}, open)
	if err != nil {
		t.Fatalf("OpenMultiTimePaths failed: %v", err)
	}
	defer mt.Close()
	if got := mt.Paths(); len(got) != 2 {
		t.Errorf("expected 2 constituent paths, got %v", got)
	}
	if len(mt.TimeIndex()) != 48 {
		t.Errorf("expected 48 composite timestamps, got %d", len(mt.TimeIndex()))
	}
}
