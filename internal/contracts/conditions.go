package contracts

import "fmt"

// Operator is a comparison direction for MA rules
type Operator string

const (
	OpAbove Operator = ">"
	OpBelow Operator = "<"
)

// Valid reports whether the operator is known
func (o Operator) Valid() bool {
	return o == OpAbove || o == OpBelow
}

// Compare applies the operator. NaN operands never satisfy it.
func (o Operator) Compare(a, b float64) bool {
	switch o {
	case OpAbove:
		return a > b
	case OpBelow:
		return a < b
	default:
		return false
	}
}

// CompareInverse applies the non-strict inverse (>= becomes <=).
// 크로스 조건의 "직전 봉" 검사에 사용: 부등호가 이 봉에서 뒤집혀야 한다.
func (o Operator) CompareInverse(a, b float64) bool {
	switch o {
	case OpAbove:
		return a <= b
	case OpBelow:
		return a >= b
	default:
		return false
	}
}

// PriceField selects which bar price a breakout rule compares
type PriceField string

const (
	FieldOpen  PriceField = "open"
	FieldClose PriceField = "close"
)

// Valid reports whether the price field is known
func (f PriceField) Valid() bool {
	return f == FieldOpen || f == FieldClose
}

// ChangeDirection is the sign of a banded change rule
type ChangeDirection string

const (
	ChangeUp   ChangeDirection = "up"
	ChangeDown ChangeDirection = "down"
)

// Valid reports whether the direction is known
func (d ChangeDirection) Valid() bool {
	return d == ChangeUp || d == ChangeDown
}

// AlignmentRule requires MA(Fast) > MA(Mid) > MA(Slow).
// 순서는 분석자가 정한 그대로 비교한다 (자동 정렬 없음).
type AlignmentRule struct {
	Fast int `json:"fast" yaml:"fast"`
	Mid  int `json:"mid" yaml:"mid"`
	Slow int `json:"slow" yaml:"slow"`
}

// CrossRule fires only on the bar where MA(Left) Op MA(Right) starts to hold
type CrossRule struct {
	Left  int      `json:"left" yaml:"left"`
	Op    Operator `json:"op" yaml:"op"`
	Right int      `json:"right" yaml:"right"`
}

// BreakoutRule compares a bar price with one MA on the same bar
type BreakoutRule struct {
	Field  PriceField `json:"field" yaml:"field"`
	Op     Operator   `json:"op" yaml:"op"`
	Window int        `json:"window" yaml:"window"`
}

// ChangeRule is a banded percent-change condition. MaxPct <= 0 means the
// band is open-ended ("+N% or more").
type ChangeRule struct {
	MinPct    float64         `json:"min_pct" yaml:"min_pct"`
	MaxPct    float64         `json:"max_pct" yaml:"max_pct"`
	Direction ChangeDirection `json:"direction" yaml:"direction"`
}

// Bounded reports whether the band has an upper limit
func (r ChangeRule) Bounded() bool {
	return r.MaxPct > 0
}

// ConditionSpec is the set of enabled technical rules. Nil rule kinds are
// absent and contribute no constraint; present kinds combine by AND.
type ConditionSpec struct {
	Alignment    *AlignmentRule `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	Cross        *CrossRule     `json:"cross,omitempty" yaml:"cross,omitempty"`
	Breakout     *BreakoutRule  `json:"breakout,omitempty" yaml:"breakout,omitempty"`
	DailyChange  *ChangeRule    `json:"daily_change,omitempty" yaml:"daily_change,omitempty"`
	VolumeChange *ChangeRule    `json:"volume_change,omitempty" yaml:"volume_change,omitempty"`
}

// IsEmpty reports whether no technical rule is enabled
func (c *ConditionSpec) IsEmpty() bool {
	return c.Alignment == nil && c.Cross == nil && c.Breakout == nil &&
		c.DailyChange == nil && c.VolumeChange == nil
}

// MAWindows returns every MA window length any enabled rule references
func (c *ConditionSpec) MAWindows() []int {
	seen := map[int]bool{}
	var out []int
	add := func(w int) {
		if w > 0 && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}

	if c.Alignment != nil {
		add(c.Alignment.Fast)
		add(c.Alignment.Mid)
		add(c.Alignment.Slow)
	}
	if c.Cross != nil {
		add(c.Cross.Left)
		add(c.Cross.Right)
	}
	if c.Breakout != nil {
		add(c.Breakout.Window)
	}
	return out
}

// Validate surfaces malformed specs as caller errors (spec contract
// violations are never silently absorbed)
func (c *ConditionSpec) Validate() error {
	if c.Alignment != nil {
		if c.Alignment.Fast < 1 || c.Alignment.Mid < 1 || c.Alignment.Slow < 1 {
			return fmt.Errorf("alignment: windows must be positive")
		}
	}

	if c.Cross != nil {
		if !c.Cross.Op.Valid() {
			return fmt.Errorf("cross: unknown operator %q", c.Cross.Op)
		}
		if c.Cross.Left < 1 || c.Cross.Right < 1 {
			return fmt.Errorf("cross: windows must be positive")
		}
	}

	if c.Breakout != nil {
		if !c.Breakout.Op.Valid() {
			return fmt.Errorf("breakout: unknown operator %q", c.Breakout.Op)
		}
		if !c.Breakout.Field.Valid() {
			return fmt.Errorf("breakout: unknown price field %q", c.Breakout.Field)
		}
		if c.Breakout.Window < 1 {
			return fmt.Errorf("breakout: window must be positive")
		}
	}

	if c.DailyChange != nil {
		if err := validateChange("daily_change", c.DailyChange); err != nil {
			return err
		}
	}

	if c.VolumeChange != nil {
		if err := validateChange("volume_change", c.VolumeChange); err != nil {
			return err
		}
	}

	return nil
}

func validateChange(kind string, r *ChangeRule) error {
	if !r.Direction.Valid() {
		return fmt.Errorf("%s: unknown direction %q", kind, r.Direction)
	}
	if r.MinPct < 0 {
		return fmt.Errorf("%s: min_pct must be >= 0", kind)
	}
	if r.Bounded() && r.MaxPct <= r.MinPct {
		return fmt.Errorf("%s: max_pct must exceed min_pct", kind)
	}
	return nil
}

// DailyChangeBands returns the standard screening menu for daily price
// moves: 3~5%, 5~7%, 7~9%, 9%+.
func DailyChangeBands(direction ChangeDirection) []ChangeRule {
	return []ChangeRule{
		{MinPct: 3, MaxPct: 5, Direction: direction},
		{MinPct: 5, MaxPct: 7, Direction: direction},
		{MinPct: 7, MaxPct: 9, Direction: direction},
		{MinPct: 9, Direction: direction},
	}
}

// VolumeChangeBands returns the standard screening menu for volume
// surges: 100~200%, 200~300%, 300%+.
func VolumeChangeBands(direction ChangeDirection) []ChangeRule {
	return []ChangeRule{
		{MinPct: 100, MaxPct: 200, Direction: direction},
		{MinPct: 200, MaxPct: 300, Direction: direction},
		{MinPct: 300, Direction: direction},
	}
}

// PeriodGranularity selects which filings a streak rule consumes
type PeriodGranularity string

const (
	PeriodYear    PeriodGranularity = "year"    // 사업보고서만
	PeriodQuarter PeriodGranularity = "quarter" // 모든 보고서, 공시 순서대로
)

// Valid reports whether the granularity is known
func (p PeriodGranularity) Valid() bool {
	return p == PeriodYear || p == PeriodQuarter
}

// GrowthRule requires the last three period-over-period changes of a metric
// to each meet MinChangePct
type GrowthRule struct {
	Period       PeriodGranularity `json:"period" yaml:"period"`
	MinChangePct float64           `json:"min_change_pct" yaml:"min_change_pct"`
}

// SurplusRule requires the last three observations of a metric to be positive
type SurplusRule struct {
	Period PeriodGranularity `json:"period" yaml:"period"`
}

// FundamentalConditionSpec gates signals on normalized statement series.
// An empty spec means the fundamental gate is not evaluated at all.
type FundamentalConditionSpec struct {
	Growth  map[string]GrowthRule  `json:"growth,omitempty" yaml:"growth,omitempty"`
	Surplus map[string]SurplusRule `json:"surplus,omitempty" yaml:"surplus,omitempty"`

	// Liabilities / Equity * 100 <= MaxDebtRatioPct, point-in-time
	MaxDebtRatioPct *float64 `json:"max_debt_ratio_pct,omitempty" yaml:"max_debt_ratio_pct,omitempty"`
}

// IsEmpty reports whether the fundamental gate is disabled
func (f *FundamentalConditionSpec) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.Growth) == 0 && len(f.Surplus) == 0 && f.MaxDebtRatioPct == nil
}

// YearRange returns the fiscal-year span of filings the gate needs to cover
// the analysis window [startYear, endYear]. Streaks look back four periods,
// so annual rules need four extra years of history.
func (f *FundamentalConditionSpec) YearRange(startYear, endYear int) (int, int) {
	return startYear - 5, endYear
}

// Validate surfaces malformed fundamental specs as caller errors
func (f *FundamentalConditionSpec) Validate() error {
	if f == nil {
		return nil
	}

	for metric, rule := range f.Growth {
		if rule.Period != "" && !rule.Period.Valid() {
			return fmt.Errorf("growth[%s]: unknown period %q", metric, rule.Period)
		}
	}

	for metric, rule := range f.Surplus {
		if rule.Period != "" && !rule.Period.Valid() {
			return fmt.Errorf("surplus[%s]: unknown period %q", metric, rule.Period)
		}
	}

	if f.MaxDebtRatioPct != nil && *f.MaxDebtRatioPct < 0 {
		return fmt.Errorf("max_debt_ratio_pct must be >= 0")
	}

	return nil
}
