package stats

import (
	"fmt"
	"math"
)

// WeightedCircularMean computes the circular average of directional data,
// applying per-sample weights when given. Averaging wind direction with
// wind speed as weights, for example, biases the mean toward directions
// observed at higher speeds.
//
// Data is assumed to be in degrees when degrees is true, and the result is
// normalized into [0, 360). NaN samples are skipped; all-NaN data yields
// NaN. A nil weights slice yields the unweighted circular mean; a weights
// slice whose length does not match the data is rejected before any other
// processing.
func WeightedCircularMean(data, weights []float64, degrees bool) (float64, error) {
	if weights != nil && len(weights) != len(data) {
		return 0, fmt.Errorf("%w: %d weights for %d samples",
			ErrStatistics, len(weights), len(data))
	}

	var sumSin, sumCos float64
	n := 0
	for i, v := range data {
		if math.IsNaN(v) {
			continue
		}
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if degrees {
			v = v * math.Pi / 180
		}
		sumSin += math.Sin(v) * w
		sumCos += math.Cos(v) * w
		n++
	}
	if n == 0 {
		return math.NaN(), nil
	}

	mean := math.Atan2(sumSin, sumCos)
	if degrees {
		mean = mean * 180 / math.Pi
		// Adding 360 to a tiny negative angle rounds to exactly 360;
		// fold instead so the result stays in [0, 360).
		mean = math.Mod(mean+360, 360)
	}
	return mean, nil
}

// CircularMeanStat builds a weighted circular mean statistic over the given
// weight dataset(s). Register it under a name with the "weighted" prefix so
// the engine routes it through the weighted-reduction path.
func CircularMeanStat(weights ...string) Stat {
	return Stat{
		Func: func(samples, w []float64) float64 {
			m, err := WeightedCircularMean(samples, w, true)
			if err != nil {
				return math.NaN()
			}
			return m
		},
		Weights: weights,
	}
}
