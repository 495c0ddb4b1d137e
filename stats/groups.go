package stats

import (
	"fmt"

	"github.com/DimaK415/rex/resource"
)

// Granularity is the temporal bucketing applied before reduction. It is
// always passed explicitly; group identity is never inferred from key
// magnitudes.
type Granularity int

const (
	// Ungrouped reduces the full temporal extent.
	Ungrouped Granularity = iota
	// ByMonth buckets by calendar month.
	ByMonth
	// ByHour buckets by hour of day.
	ByHour
	// ByMonthHour buckets by the (month, hour) cross product.
	ByMonthHour
)

func granularityFor(monthly, diurnal bool) Granularity {
	switch {
	case monthly && diurnal:
		return ByMonthHour
	case monthly:
		return ByMonth
	case diurnal:
		return ByHour
	}
	return Ungrouped
}

// group is one temporal bucket: a label and the time-axis rows it covers.
type group struct {
	label string
	rows  []int
}

func monthLabel(m int) string { return monthNames[m-1] }

var monthNames = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

func hourLabel(h int) string { return fmt.Sprintf("%02d:00UTC", h) }

// groups buckets a time index at the given granularity. Only buckets with
// at least one timestamp are emitted, in month/hour order. Combined labels
// are hyphen-joined.
func (g Granularity) groups(ti resource.TimeIndex) []group {
	switch g {
	case ByMonth:
		buckets := make([][]int, 12)
		for i, t := range ti {
			m := int(t.Month()) - 1
			buckets[m] = append(buckets[m], i)
		}
		var out []group
		for m, rows := range buckets {
			if len(rows) > 0 {
				out = append(out, group{label: monthLabel(m + 1), rows: rows})
			}
		}
		return out

	case ByHour:
		buckets := make([][]int, 24)
		for i, t := range ti {
			h := t.Hour()
			buckets[h] = append(buckets[h], i)
		}
		var out []group
		for h, rows := range buckets {
			if len(rows) > 0 {
				out = append(out, group{label: hourLabel(h), rows: rows})
			}
		}
		return out

	case ByMonthHour:
		buckets := make([][]int, 12*24)
		for i, t := range ti {
			k := (int(t.Month())-1)*24 + t.Hour()
			buckets[k] = append(buckets[k], i)
		}
		var out []group
		for k, rows := range buckets {
			if len(rows) > 0 {
				label := monthLabel(k/24+1) + "-" + hourLabel(k%24)
				out = append(out, group{label: label, rows: rows})
			}
		}
		return out
	}

	rows := make([]int, len(ti))
	for i := range rows {
		rows[i] = i
	}
	return []group{{rows: rows}}
}

// columnName joins a group label with a statistic name. Ungrouped columns
// carry the bare statistic name.
func columnName(label, stat string) string {
	if label == "" {
		return stat
	}
	return label + "_" + stat
}
