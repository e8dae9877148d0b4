package fundamental

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/wonny/stockscan/internal/contracts"
)

// accountSynonyms maps canonical account names to whitespace-insensitive
// substrings matched against raw filing labels. First canonical with a
// matching synonym wins; unmapped labels pass through unchanged.
var accountSynonyms = []struct {
	canonical string
	patterns  []string
}{
	{contracts.AccountRevenue, []string{"매출액", "영업수익", "수익(매출액)", "revenue", "sales"}},
	{contracts.AccountOperatingIncome, []string{"영업이익", "operatingincome", "operatingprofit"}},
	{contracts.AccountNetIncome, []string{"당기순이익", "netincome", "profitfortheyear"}},
	{contracts.AccountEquity, []string{"자본총계", "totalequity"}},
	{contracts.AccountLiabilities, []string{"부채총계", "totalliabilities"}},
	{contracts.AccountOperatingCashFlow, []string{"영업활동현금흐름", "영업활동으로인한현금흐름", "operatingcashflow", "cashflowsfromoperating"}},
	{contracts.AccountCapitalExpenditure, []string{"자본적지출", "유형자산의취득", "capitalexpenditure", "capex"}},
}

// CanonicalAccount maps a raw account label onto the fixed vocabulary.
// Returns the raw label unchanged when nothing matches.
func CanonicalAccount(raw string) string {
	folded := foldLabel(raw)
	for _, entry := range accountSynonyms {
		for _, p := range entry.patterns {
			if strings.Contains(folded, foldLabel(p)) {
				return entry.canonical
			}
		}
	}
	return raw
}

// foldLabel lowercases and strips all whitespace from a label
func foldLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// periodKey identifies one reporting period of one stock
type periodKey struct {
	year   int
	report contracts.ReportCode
}

// Normalize converts raw filing records into point-in-time statement series:
// consolidated preferred over separate for the same period, accounts mapped
// to the canonical vocabulary, derived metrics synthesized, observations
// sorted by effective date.
func Normalize(records []contracts.FilingRecord) contracts.StatementSeries {
	// 같은 (연도, 보고서)에 연결/별도가 모두 있으면 연결만 사용
	hasConsolidated := make(map[periodKey]bool)
	for _, rec := range records {
		if rec.Consolidated {
			hasConsolidated[periodKey{rec.FiscalYear, rec.Report}] = true
		}
	}

	// account -> period -> value (last record wins per period)
	byAccount := make(map[string]map[periodKey]float64)
	for _, rec := range records {
		if !rec.Report.Valid() {
			continue
		}
		key := periodKey{rec.FiscalYear, rec.Report}
		if hasConsolidated[key] && !rec.Consolidated {
			continue
		}

		account := CanonicalAccount(rec.Account)
		if byAccount[account] == nil {
			byAccount[account] = make(map[periodKey]float64)
		}
		byAccount[account][key] = rec.Amount
	}

	deriveMetrics(byAccount)

	series := make(contracts.StatementSeries, len(byAccount))
	for account, periods := range byAccount {
		obs := make([]contracts.Observation, 0, len(periods))
		for key, value := range periods {
			obs = append(obs, contracts.Observation{
				FiscalYear: key.year,
				Report:     key.report,
				Effective:  key.report.EffectiveDate(key.year),
				Value:      value,
			})
		}
		sort.Slice(obs, func(i, j int) bool {
			if !obs[i].Effective.Equal(obs[j].Effective) {
				return obs[i].Effective.Before(obs[j].Effective)
			}
			if obs[i].FiscalYear != obs[j].FiscalYear {
				return obs[i].FiscalYear < obs[j].FiscalYear
			}
			return obs[i].Report.Order() < obs[j].Report.Order()
		})
		series[account] = obs
	}

	return series
}

// deriveMetrics synthesizes operating margin and free cash flow for every
// period where the source accounts were filed together. Missing sources
// omit the period rather than producing zeros.
func deriveMetrics(byAccount map[string]map[periodKey]float64) {
	revenue := byAccount[contracts.AccountRevenue]
	opIncome := byAccount[contracts.AccountOperatingIncome]
	ocf := byAccount[contracts.AccountOperatingCashFlow]
	capex := byAccount[contracts.AccountCapitalExpenditure]

	for key, oi := range opIncome {
		rev, ok := revenue[key]
		if !ok || rev == 0 {
			continue
		}
		if byAccount[contracts.AccountOperatingMargin] == nil {
			byAccount[contracts.AccountOperatingMargin] = make(map[periodKey]float64)
		}
		byAccount[contracts.AccountOperatingMargin][key] = oi / rev * 100
	}

	for key, flow := range ocf {
		cx, ok := capex[key]
		if !ok {
			continue
		}
		if byAccount[contracts.AccountFreeCashFlow] == nil {
			byAccount[contracts.AccountFreeCashFlow] = make(map[periodKey]float64)
		}
		// 잉여현금흐름 = 영업활동현금흐름 - |자본적지출|
		byAccount[contracts.AccountFreeCashFlow][key] = flow - math.Abs(cx)
	}
}
