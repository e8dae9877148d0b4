package technical

import (
	"math"
	"sort"

	"github.com/wonny/stockscan/internal/contracts"
)

// DefaultWindows are always computed alongside rule-referenced windows
// (차트 기본 이평선: 5/20/60/120일)
var DefaultWindows = []int{5, 20, 60, 120}

// ExtendMAs computes trailing simple moving averages of the close column
// for every requested window and stores them on the series. Rows with fewer
// than window bars of history are NaN and never satisfy any rule.
func ExtendMAs(s *contracts.PriceSeries, windows []int) {
	for _, w := range dedupe(windows) {
		if w < 1 || s.HasMA(w) {
			continue
		}
		s.SetMA(w, rollingMean(s.Closes(), w))
	}
}

// rollingMean computes the trailing mean over the last w values,
// NaN for the first w-1 positions
func rollingMean(values []float64, w int) []float64 {
	out := make([]float64, len(values))

	var sum float64
	for i, v := range values {
		sum += v
		if i >= w {
			sum -= values[i-w]
		}
		if i >= w-1 {
			out[i] = sum / float64(w)
		} else {
			out[i] = math.NaN()
		}
	}

	return out
}

// pctChange computes day-over-day percent change, NaN at position 0
func pctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i] - values[i-1]) / values[i-1] * 100
	}
	return out
}

func dedupe(windows []int) []int {
	seen := make(map[int]bool, len(windows))
	out := make([]int, 0, len(windows))
	for _, w := range windows {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Ints(out)
	return out
}
