package fundamental

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscan/internal/contracts"
)

func TestCanonicalAccount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"매출액", contracts.AccountRevenue},
		{"수익(매출액)", contracts.AccountRevenue},
		{"영업수익", contracts.AccountRevenue},
		{"영업이익", contracts.AccountOperatingIncome},
		{"영업이익(손실)", contracts.AccountOperatingIncome},
		{"당기순이익", contracts.AccountNetIncome},
		{"당기순이익(손실)", contracts.AccountNetIncome},
		{"자본총계", contracts.AccountEquity},
		{"부채총계", contracts.AccountLiabilities},
		{"영업활동현금흐름", contracts.AccountOperatingCashFlow},
		{"영업활동으로 인한 현금흐름", contracts.AccountOperatingCashFlow},
		{"유형자산의 취득", contracts.AccountCapitalExpenditure},
		{"Total Equity", contracts.AccountEquity},
		{"이자수익", "이자수익"},       // unmapped passes through
		{"무형자산상각비", "무형자산상각비"}, // unmapped passes through
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := CanonicalAccount(tt.raw); got != tt.want {
				t.Errorf("CanonicalAccount(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func rec(year int, report contracts.ReportCode, account string, amount float64, consolidated bool) contracts.FilingRecord {
	return contracts.FilingRecord{
		StockCode:    "005930",
		FiscalYear:   year,
		Report:       report,
		Account:      account,
		Amount:       amount,
		Consolidated: consolidated,
	}
}

func TestNormalizePrefersConsolidated(t *testing.T) {
	records := []contracts.FilingRecord{
		rec(2023, contracts.ReportAnnual, "매출액", 100, false), // 별도
		rec(2023, contracts.ReportAnnual, "매출액", 300, true),  // 연결
		rec(2022, contracts.ReportAnnual, "매출액", 80, false),  // 별도만 존재
	}

	series := Normalize(records)
	obs := series[contracts.AccountRevenue]
	require.Len(t, obs, 2)

	// Ascending by effective date: 2022 annual first
	assert.Equal(t, 2022, obs[0].FiscalYear)
	assert.Equal(t, 80.0, obs[0].Value, "separate statement used when no consolidated one exists")
	assert.Equal(t, 300.0, obs[1].Value, "consolidated wins over separate for the same period")
}

func TestNormalizeEffectiveDates(t *testing.T) {
	records := []contracts.FilingRecord{
		rec(2023, contracts.ReportQ1, "매출액", 1, true),
		rec(2023, contracts.ReportH1, "매출액", 2, true),
		rec(2023, contracts.ReportQ3, "매출액", 3, true),
		rec(2023, contracts.ReportAnnual, "매출액", 4, true),
	}

	obs := Normalize(records)[contracts.AccountRevenue]
	require.Len(t, obs, 4)

	assert.Equal(t, "2023-05-15", obs[0].Effective.Format("2006-01-02"))
	assert.Equal(t, "2023-08-14", obs[1].Effective.Format("2006-01-02"))
	assert.Equal(t, "2023-11-14", obs[2].Effective.Format("2006-01-02"))
	// 사업보고서는 다음 해 봄에야 유효
	assert.Equal(t, "2024-03-31", obs[3].Effective.Format("2006-01-02"))
}

func TestNormalizeDerivesMetrics(t *testing.T) {
	records := []contracts.FilingRecord{
		rec(2023, contracts.ReportAnnual, "매출액", 200, true),
		rec(2023, contracts.ReportAnnual, "영업이익", 50, true),
		rec(2023, contracts.ReportAnnual, "영업활동현금흐름", 70, true),
		rec(2023, contracts.ReportAnnual, "유형자산의 취득", -30, true), // capex filed negative
		// 2022: operating income without revenue - no margin
		rec(2022, contracts.ReportAnnual, "영업이익", 40, true),
	}

	series := Normalize(records)

	margin := series[contracts.AccountOperatingMargin]
	require.Len(t, margin, 1, "margin only for periods with both sources")
	assert.Equal(t, 2023, margin[0].FiscalYear)
	assert.InDelta(t, 25.0, margin[0].Value, 1e-9)

	fcf := series[contracts.AccountFreeCashFlow]
	require.Len(t, fcf, 1)
	assert.InDelta(t, 40.0, fcf[0].Value, 1e-9, "FCF = OCF - |capex|")
}

func TestNormalizeKeepsUnmappedAccounts(t *testing.T) {
	records := []contracts.FilingRecord{
		rec(2023, contracts.ReportAnnual, "이자비용", 10, true),
	}

	series := Normalize(records)
	require.Contains(t, series, "이자비용")
	assert.NotContains(t, series, contracts.AccountRevenue)
}

func TestNormalizeSkipsUnknownReportCodes(t *testing.T) {
	records := []contracts.FilingRecord{
		{StockCode: "005930", FiscalYear: 2023, Report: "Q5", Account: "매출액", Amount: 1, Consolidated: true},
	}

	series := Normalize(records)
	assert.Empty(t, series)
}
