// Package stats extracts temporal statistics (mean, median, std, custom and
// weighted reductions) from resource datasets, partitioning the site axis
// into chunk-aligned slices computed across a bounded worker pool and
// merging the results into one table keyed by site gid.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Errors returned by the statistics engine.
var (
	ErrStatistics        = errors.New("invalid statistics configuration")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// weightedPrefix marks statistic names routed through the weighted
// reduction path instead of plain aggregation.
const weightedPrefix = "weighted"

// StatFunc reduces one site's samples within one temporal group. weights is
// nil on the plain aggregation path.
type StatFunc func(samples, weights []float64) float64

// Stat is one statistic to extract: the reduction function plus, for
// weighted statistics, the dataset(s) whose elementwise product forms the
// per-sample weights and how to condition them.
type Stat struct {
	Func        StatFunc
	Weights     []string
	ExpWeights  bool // exponentiate weights before reducing
	NormWeights bool // normalize weights to unit sum within each group
}

// Statistics maps statistic names to their configuration. Names starting
// with "weighted" use the weighted-reduction path.
type Statistics map[string]Stat

// Mean is the NaN-skipping arithmetic mean.
func Mean(samples, _ []float64) float64 {
	v := dropNaN(samples)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// Median is the NaN-skipping median, averaging the two middle samples for
// even counts.
func Median(samples, _ []float64) float64 {
	v := dropNaN(samples)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// Std is the NaN-skipping population standard deviation.
func Std(samples, _ []float64) float64 {
	v := dropNaN(samples)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(v, nil)
}

// Standard resolves bare statistic names to their built-in configurations.
// Unknown names are rejected.
func Standard(names ...string) (Statistics, error) {
	builtin := map[string]StatFunc{
		"mean":   Mean,
		"median": Median,
		"std":    Std,
	}
	out := make(Statistics, len(names))
	for _, name := range names {
		fn, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown statistic %q", ErrStatistics, name)
		}
		out[name] = Stat{Func: fn}
	}
	return out, nil
}

// validate checks that every statistic entry declares a reduction function.
func (s Statistics) validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no statistics requested", ErrStatistics)
	}
	for name, st := range s {
		if st.Func == nil {
			return fmt.Errorf("%w: statistic %q has no function", ErrStatistics, name)
		}
	}
	return nil
}

// names returns the statistic names in deterministic order.
func (s Statistics) names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func isWeighted(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), weightedPrefix)
}

func dropNaN(samples []float64) []float64 {
	out := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
