package fundamental

import (
	"sort"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
)

// Evaluator combines streak and debt-ratio gates into one fundamental mask
// ⭐ SSOT: 펀더멘털 조건 마스크 계산은 여기서만
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates a fundamental condition evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{logger: log}
}

// Evaluate returns the AND of every enabled fundamental sub-condition,
// aligned to the trading-day calendar. An empty spec is vacuously true.
// No statements with a non-empty spec fails closed: all false.
func (e *Evaluator) Evaluate(stmts contracts.StatementSeries, spec *contracts.FundamentalConditionSpec, dates []time.Time) []bool {
	mask := make([]bool, len(dates))

	if spec.IsEmpty() {
		for i := range mask {
			mask[i] = true
		}
		return mask
	}

	if len(stmts) == 0 {
		// 공시 데이터가 없으면 절대 통과시키지 않는다 (fail closed)
		return mask
	}

	for i := range mask {
		mask[i] = true
	}

	and := func(sub []bool) {
		for i := range mask {
			mask[i] = mask[i] && sub[i]
		}
	}

	// Deterministic rule order regardless of map iteration
	for _, metric := range sortedKeys(spec.Growth) {
		rule := spec.Growth[metric]
		period := rule.Period
		if period == "" {
			period = contracts.PeriodYear
		}
		and(GrowthMask(stmts[metric], period, rule.MinChangePct, dates))
	}

	for _, metric := range sortedKeys(spec.Surplus) {
		rule := spec.Surplus[metric]
		period := rule.Period
		if period == "" {
			period = contracts.PeriodYear
		}
		and(SurplusMask(stmts[metric], period, dates))
	}

	if spec.MaxDebtRatioPct != nil {
		and(e.debtRatioMask(stmts, *spec.MaxDebtRatioPct, dates))
	}

	return mask
}

// debtRatioMask marks days where Liabilities / Equity * 100 <= ceiling.
// Equity and Liabilities are each resolved as the most recent observation
// effective at the evaluation date; they need not come from the same filing.
func (e *Evaluator) debtRatioMask(stmts contracts.StatementSeries, ceiling float64, dates []time.Time) []bool {
	equity := stmts[contracts.AccountEquity]
	liabilities := stmts[contracts.AccountLiabilities]
	if len(equity) == 0 || len(liabilities) == 0 {
		return make([]bool, len(dates))
	}

	// Re-evaluate at every date either account changes
	eventSet := make(map[time.Time]bool)
	for _, o := range equity {
		eventSet[o.Effective] = true
	}
	for _, o := range liabilities {
		eventSet[o.Effective] = true
	}

	events := make([]time.Time, 0, len(eventSet))
	for at := range eventSet {
		events = append(events, at)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Before(events[j]) })

	steps := make([]step, 0, len(events))
	for _, at := range events {
		eq, eqOK := latestAsOf(equity, at)
		li, liOK := latestAsOf(liabilities, at)

		holds := false
		if eqOK && liOK && eq != 0 {
			holds = li/eq*100 <= ceiling
		}
		steps = append(steps, step{at: at, holds: holds})
	}

	return broadcast(steps, dates)
}

// latestAsOf returns the value of the last observation effective on or
// before the given date
func latestAsOf(obs []contracts.Observation, at time.Time) (float64, bool) {
	var value float64
	found := false
	for _, o := range obs {
		if o.Effective.After(at) {
			break
		}
		value = o.Value
		found = true
	}
	return value, found
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
