package contracts

import "time"

// ReportCode identifies the reporting period of a filing
type ReportCode string

const (
	ReportQ1     ReportCode = "Q1"     // 1분기보고서
	ReportH1     ReportCode = "H1"     // 반기보고서
	ReportQ3     ReportCode = "Q3"     // 3분기보고서
	ReportAnnual ReportCode = "Annual" // 사업보고서
)

// reportOrder gives chronological order of reports within a fiscal year
var reportOrder = map[ReportCode]int{
	ReportQ1:     1,
	ReportH1:     2,
	ReportQ3:     3,
	ReportAnnual: 4,
}

// Order returns the within-year chronological rank of the report (0 if unknown)
func (r ReportCode) Order() int {
	return reportOrder[r]
}

// Valid reports whether the report code is one of the known periods
func (r ReportCode) Valid() bool {
	return reportOrder[r] != 0
}

// EffectiveDate returns the point-in-time publication date of a filing for
// fiscal year. Statutory deadlines: 분기/반기 45일, 사업보고서 90일.
// 연간 실적은 다음 해 봄까지 시장이 알 수 없다.
func (r ReportCode) EffectiveDate(fiscalYear int) time.Time {
	switch r {
	case ReportQ1:
		return time.Date(fiscalYear, time.May, 15, 0, 0, 0, 0, time.UTC)
	case ReportH1:
		return time.Date(fiscalYear, time.August, 14, 0, 0, 0, 0, time.UTC)
	case ReportQ3:
		return time.Date(fiscalYear, time.November, 14, 0, 0, 0, 0, time.UTC)
	case ReportAnnual:
		return time.Date(fiscalYear+1, time.March, 31, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// Canonical account names produced by the statement normalizer.
// 원본 계정과목명은 정규화 후 이 어휘로만 다뤄진다.
const (
	AccountRevenue            = "revenue"
	AccountOperatingIncome    = "operating_income"
	AccountNetIncome          = "net_income"
	AccountEquity             = "equity"
	AccountLiabilities        = "liabilities"
	AccountOperatingCashFlow  = "operating_cash_flow"
	AccountCapitalExpenditure = "capital_expenditure"

	// Derived metrics (synthesized, never fetched)
	AccountOperatingMargin = "operating_margin"
	AccountFreeCashFlow    = "free_cash_flow"
)

// FilingRecord is one raw statement line item from the filing provider
type FilingRecord struct {
	StockCode    string     `json:"stock_code"`
	FiscalYear   int        `json:"fiscal_year"`
	Report       ReportCode `json:"report"`
	Account      string     `json:"account"` // raw label as filed
	Amount       float64    `json:"amount"`
	Consolidated bool       `json:"consolidated"` // 연결(true)/별도(false)
}

// EffectiveDate returns the date this record becomes point-in-time visible
func (f FilingRecord) EffectiveDate() time.Time {
	return f.Report.EffectiveDate(f.FiscalYear)
}

// Observation is one point of a normalized statement series
type Observation struct {
	FiscalYear int        `json:"fiscal_year"`
	Report     ReportCode `json:"report"`
	Effective  time.Time  `json:"effective"`
	Value      float64    `json:"value"`
}

// StatementSeries maps canonical account names to chronologically ordered
// observations (ordered by effective date)
type StatementSeries map[string][]Observation
