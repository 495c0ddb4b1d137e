package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/DimaK415/rex/resource"
)

// computeSlice reads one site slice and computes every requested statistic
// at the requested temporal granularities, returning a table indexed by the
// slice's gids.
func computeSlice(h resource.Handler, times resource.TimeIndex, dataset string,
	statistics Statistics, gids []int, monthly, diurnal, combinations bool) (*Table, error) {

	data, err := h.Read(dataset, resource.All(), resource.Pick(gids...))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", dataset, err)
	}
	if len(data) != len(times) {
		return nil, fmt.Errorf("dataset %q has %d time rows, time index has %d",
			dataset, len(data), len(times))
	}

	weights, err := extractWeights(h, statistics, gids)
	if err != nil {
		return nil, err
	}

	var grans []Granularity
	if combinations {
		grans = append(grans, Ungrouped)
		if monthly {
			grans = append(grans, ByMonth)
		}
		if diurnal {
			grans = append(grans, ByHour)
		}
		if monthly && diurnal {
			grans = append(grans, ByMonthHour)
		}
	} else {
		grans = []Granularity{granularityFor(monthly, diurnal)}
	}

	table := &Table{Index: gids}
	for _, gran := range grans {
		for _, g := range gran.groups(times) {
			for _, name := range statistics.names() {
				st := statistics[name]
				col := make([]float64, len(gids))
				for site := range gids {
					samples := gather(data, g.rows, site)
					var w []float64
					if isWeighted(name) {
						w = groupWeights(st, weights[name], g.rows, site)
					}
					col[site] = st.Func(samples, w)
				}
				table.addColumn(columnName(g.label, name), col)
			}
		}
	}
	return table, nil
}

// extractWeights reads and combines the weight dataset(s) of every weighted
// statistic by elementwise product, keyed by statistic name. Weighted
// statistics with no weight datasets configured reduce unweighted.
func extractWeights(h resource.Handler, statistics Statistics, gids []int) (map[string][][]float64, error) {
	out := map[string][][]float64{}
	for _, name := range statistics.names() {
		st := statistics[name]
		if !isWeighted(name) || len(st.Weights) == 0 {
			continue
		}
		var combined [][]float64
		for _, dset := range st.Weights {
			w, err := h.Read(dset, resource.All(), resource.Pick(gids...))
			if err != nil {
				return nil, fmt.Errorf("reading weights %q for %q: %w", dset, name, err)
			}
			if combined == nil {
				combined = w
				continue
			}
			for i := range combined {
				for j := range combined[i] {
					combined[i][j] *= w[i][j]
				}
			}
		}
		out[name] = combined
	}
	return out, nil
}

// gather collects one site's samples for the given time rows.
func gather(data [][]float64, rows []int, site int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = data[r][site]
	}
	return out
}

// groupWeights conditions one site's weights for one group: elementwise
// exponentiation and unit-sum normalization as configured.
func groupWeights(st Stat, weights [][]float64, rows []int, site int) []float64 {
	if weights == nil {
		return nil
	}
	w := gather(weights, rows, site)
	if st.ExpWeights {
		for i := range w {
			w[i] = math.Exp(w[i])
		}
	}
	if st.NormWeights {
		if sum := floats.Sum(w); sum != 0 {
			floats.Scale(1/sum, w)
		}
	}
	return w
}
