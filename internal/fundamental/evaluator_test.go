package fundamental

import (
	"time"

	"testing"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
)

func TestEvaluateEmptySpecIsVacuouslyTrue(t *testing.T) {
	eval := NewEvaluator(logger.NewNop())
	dates := tradingDays(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 3)

	for _, spec := range []*contracts.FundamentalConditionSpec{nil, {}} {
		mask := eval.Evaluate(nil, spec, dates)
		if len(mask) != len(dates) {
			t.Fatalf("len(mask) = %d, want %d", len(mask), len(dates))
		}
		for i := range mask {
			if !mask[i] {
				t.Errorf("mask[%d] = false, want true for empty spec", i)
			}
		}
	}
}

func TestEvaluateNoFilingsFailsClosed(t *testing.T) {
	eval := NewEvaluator(logger.NewNop())
	dates := tradingDays(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 3)

	spec := &contracts.FundamentalConditionSpec{
		Surplus: map[string]contracts.SurplusRule{
			contracts.AccountNetIncome: {Period: contracts.PeriodYear},
		},
	}

	mask := eval.Evaluate(contracts.StatementSeries{}, spec, dates)
	for i := range mask {
		if mask[i] {
			t.Errorf("mask[%d] = true, want false without statement data", i)
		}
	}
}

func TestEvaluateGrowthAndSurplusCombination(t *testing.T) {
	eval := NewEvaluator(logger.NewNop())

	stmts := contracts.StatementSeries{
		contracts.AccountRevenue: {
			annualObs(2019, 100),
			annualObs(2020, 110),
			annualObs(2021, 121),
			annualObs(2022, 133.1),
		},
		contracts.AccountNetIncome: {
			annualObs(2020, 5),
			annualObs(2021, 3),
			annualObs(2022, 8),
		},
	}

	spec := &contracts.FundamentalConditionSpec{
		Growth: map[string]contracts.GrowthRule{
			contracts.AccountRevenue: {Period: contracts.PeriodYear, MinChangePct: 10},
		},
		Surplus: map[string]contracts.SurplusRule{
			contracts.AccountNetIncome: {Period: contracts.PeriodYear},
		},
	}

	// Both gates open at the 2022 annual's effective date.
	dates := tradingDays(time.Date(2023, 3, 30, 0, 0, 0, 0, time.UTC), 3)
	mask := eval.Evaluate(stmts, spec, dates)

	want := []bool{false, true, true}
	for i, w := range want {
		if mask[i] != w {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], w)
		}
	}
}

func TestEvaluateGrowthFailsWithoutAccountSeries(t *testing.T) {
	eval := NewEvaluator(logger.NewNop())

	stmts := contracts.StatementSeries{
		contracts.AccountNetIncome: {annualObs(2022, 8)},
	}
	spec := &contracts.FundamentalConditionSpec{
		Growth: map[string]contracts.GrowthRule{
			contracts.AccountRevenue: {Period: contracts.PeriodYear, MinChangePct: 10},
		},
	}

	dates := tradingDays(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 2)
	mask := eval.Evaluate(stmts, spec, dates)
	for i := range mask {
		if mask[i] {
			t.Errorf("mask[%d] = true, want false when the account has no observations", i)
		}
	}
}

func TestEvaluateDebtRatioCeiling(t *testing.T) {
	eval := NewEvaluator(logger.NewNop())

	stmts := contracts.StatementSeries{
		contracts.AccountEquity: {
			annualObs(2021, 100), // eff 2022-03-31
			annualObs(2022, 100), // eff 2023-03-31
		},
		contracts.AccountLiabilities: {
			annualObs(2021, 80),  // ratio 80%
			annualObs(2022, 250), // ratio 250%
		},
	}

	ceiling := 200.0
	spec := &contracts.FundamentalConditionSpec{MaxDebtRatioPct: &ceiling}

	tests := []struct {
		date string
		want bool
	}{
		{"2022-03-30", false}, // no statements effective yet
		{"2022-03-31", true},  // 80% <= 200%
		{"2023-03-30", true},
		{"2023-03-31", false}, // 250% > 200%
	}
	for _, tt := range tests {
		d, _ := time.Parse("2006-01-02", tt.date)
		mask := eval.Evaluate(stmts, spec, []time.Time{d})
		if mask[0] != tt.want {
			t.Errorf("debt gate at %s = %v, want %v", tt.date, mask[0], tt.want)
		}
	}
}

func TestEvaluateDebtRatioZeroEquityFails(t *testing.T) {
	eval := NewEvaluator(logger.NewNop())

	stmts := contracts.StatementSeries{
		contracts.AccountEquity:      {annualObs(2022, 0)},
		contracts.AccountLiabilities: {annualObs(2022, 50)},
	}

	ceiling := 500.0
	spec := &contracts.FundamentalConditionSpec{MaxDebtRatioPct: &ceiling}

	d := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	mask := eval.Evaluate(stmts, spec, []time.Time{d})
	if mask[0] {
		t.Error("debt gate passed with zero equity, want fail")
	}
}
