package stats

import (
	"errors"
	"math"
	"testing"
)

func TestWeightedCircularMeanWrapsZero(t *testing.T) {
	// 350 and 10 degrees straddle north; the naive mean would be 180.
	got, err := WeightedCircularMean([]float64{350, 10}, nil, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	if got < 0 || got >= 360 {
		t.Fatalf("expected result in [0, 360), got %v", got)
	}
	dist := math.Min(got, 360-got)
	if dist > 1e-9 {
		t.Errorf("expected circular mean near 0, got %v", got)
	}
}

func TestWeightedCircularMeanWeights(t *testing.T) {
	got, err := WeightedCircularMean([]float64{0, 90}, []float64{3, 1}, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	want := math.Atan2(1, 3) * 180 / math.Pi
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWeightedCircularMeanUniformWeightsMatchUnweighted(t *testing.T) {
	data := []float64{0, 90, 180, 270}
	unweighted, err := WeightedCircularMean(data, nil, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	weighted, err := WeightedCircularMean(data, []float64{1, 1, 1, 1}, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	if unweighted != weighted {
		t.Errorf("unit weights changed the result: %v vs %v", weighted, unweighted)
	}
	if unweighted < 0 || unweighted >= 360 {
		t.Errorf("expected result in [0, 360), got %v", unweighted)
	}
}

func TestWeightedCircularMeanSkipsNaN(t *testing.T) {
	got, err := WeightedCircularMean([]float64{90, math.NaN(), 90}, nil, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	if math.Abs(got-90) > 1e-9 {
		t.Errorf("expected 90, got %v", got)
	}
}

func TestWeightedCircularMeanAllNaN(t *testing.T) {
	got, err := WeightedCircularMean([]float64{math.NaN(), math.NaN()}, nil, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("expected NaN for all-NaN samples, got %v", got)
	}
	got, err = WeightedCircularMean(nil, nil, true)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("expected NaN for empty samples, got %v", got)
	}
}

func TestWeightedCircularMeanTinyNegativeAngle(t *testing.T) {
	// Directions a hair below north recombine to a tiny negative atan2
	// angle; the 360 correction must not round the result up to 360.
	for _, data := range [][]float64{{350, 10}, {359.9999999, 0.0000001}} {
		got, err := WeightedCircularMean(data, nil, true)
		if err != nil {
			t.Fatalf("WeightedCircularMean failed: %v", err)
		}
		if got >= 360 || got < 0 {
			t.Errorf("data %v: expected result in [0, 360), got %v", data, got)
		}
	}
}

func TestWeightedCircularMeanShapeMismatch(t *testing.T) {
	_, err := WeightedCircularMean([]float64{0, 90, 180}, []float64{1, 2}, true)
	if !errors.Is(err, ErrStatistics) {
		t.Errorf("expected ErrStatistics for mismatched weights, got %v", err)
	}
}

func TestWeightedCircularMeanRadians(t *testing.T) {
	got, err := WeightedCircularMean([]float64{0, math.Pi / 2}, nil, false)
	if err != nil {
		t.Fatalf("WeightedCircularMean failed: %v", err)
	}
	if math.Abs(got-math.Pi/4) > 1e-9 {
		t.Errorf("expected pi/4, got %v", got)
	}
}

func TestCircularMeanStat(t *testing.T) {
	st := CircularMeanStat("windspeed")
	if len(st.Weights) != 1 || st.Weights[0] != "windspeed" {
		t.Fatalf("expected weights [windspeed], got %v", st.Weights)
	}
	got := st.Func([]float64{0, 90}, []float64{3, 1})
	want := math.Atan2(1, 3) * 180 / math.Pi
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !math.IsNaN(st.Func([]float64{0, 90}, []float64{1})) {
		t.Error("expected NaN for mismatched weights")
	}
}
