package fundamental

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
)

const (
	growthWindow  = 4 // four observations give three period-over-period changes
	surplusWindow = 3
)

// step is one change-point of a boolean step function over time
type step struct {
	at    time.Time
	holds bool
}

// selectObservations filters a metric's observations by period granularity.
// Year keeps annual reports only, deduplicated to the latest filing per
// fiscal year; quarter keeps every report in filing order.
func selectObservations(obs []contracts.Observation, period contracts.PeriodGranularity) []contracts.Observation {
	if period == contracts.PeriodQuarter {
		out := make([]contracts.Observation, len(obs))
		copy(out, obs)
		sortByEffective(out)
		return out
	}

	latest := make(map[int]contracts.Observation)
	for _, o := range obs {
		if o.Report != contracts.ReportAnnual {
			continue
		}
		if cur, ok := latest[o.FiscalYear]; !ok || o.Effective.After(cur.Effective) {
			latest[o.FiscalYear] = o
		}
	}

	out := make([]contracts.Observation, 0, len(latest))
	for _, o := range latest {
		out = append(out, o)
	}
	sortByEffective(out)
	return out
}

func sortByEffective(obs []contracts.Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].Effective.Equal(obs[j].Effective) {
			return obs[i].Effective.Before(obs[j].Effective)
		}
		if obs[i].FiscalYear != obs[j].FiscalYear {
			return obs[i].FiscalYear < obs[j].FiscalYear
		}
		return obs[i].Report.Order() < obs[j].Report.Order()
	})
}

// qualifyingSteps evaluates pred over each trailing window of observations
// and records the verdict at that observation's effective date. The verdict
// holds until the next filing flips or reconfirms it.
func qualifyingSteps(obs []contracts.Observation, window int, pred func([]float64) bool) []step {
	if len(obs) < window {
		return nil
	}

	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}

	steps := make([]step, 0, len(obs)-window+1)
	for i := window - 1; i < len(obs); i++ {
		steps = append(steps, step{
			at:    obs[i].Effective,
			holds: pred(values[i-window+1 : i+1]),
		})
	}
	return steps
}

// broadcast reindexes a step function onto a trading-day calendar:
// each day takes the verdict of the latest step at or before it,
// false before the first step.
func broadcast(steps []step, dates []time.Time) []bool {
	mask := make([]bool, len(dates))
	idx := -1
	for i, d := range dates {
		for idx+1 < len(steps) && !steps[idx+1].at.After(d) {
			idx++
		}
		if idx >= 0 {
			mask[i] = steps[idx].holds
		}
	}
	return mask
}

// growthChanges computes period-over-period percent changes using |prev|
// as denominator; a change over a zero prior value is defined as 0
func growthChanges(window []float64) []float64 {
	changes := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		prev := window[i-1]
		if prev == 0 {
			changes = append(changes, 0)
			continue
		}
		changes = append(changes, (window[i]-prev)/math.Abs(prev)*100)
	}
	return changes
}

// GrowthMask marks trading days where the metric's last three
// period-over-period changes each meet minChangePct
func GrowthMask(obs []contracts.Observation, period contracts.PeriodGranularity, minChangePct float64, dates []time.Time) []bool {
	selected := selectObservations(obs, period)
	steps := qualifyingSteps(selected, growthWindow, func(window []float64) bool {
		for _, g := range growthChanges(window) {
			if g < minChangePct {
				return false
			}
		}
		return true
	})
	return broadcast(steps, dates)
}

// SurplusMask marks trading days where the metric's last three
// observations are all strictly positive
func SurplusMask(obs []contracts.Observation, period contracts.PeriodGranularity, dates []time.Time) []bool {
	selected := selectObservations(obs, period)
	steps := qualifyingSteps(selected, surplusWindow, func(window []float64) bool {
		for _, v := range window {
			if v <= 0 {
				return false
			}
		}
		return true
	})
	return broadcast(steps, dates)
}
