package technical

import (
	"fmt"
	"math"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
)

// minHistoryBars disqualifies short price histories regardless of which
// windows the rules reference. 요청한 이평선과 무관한 전역 컷오프로 유지한다.
const minHistoryBars = 120

// rule builds one boolean mask over a price series
type rule interface {
	Mask(s *contracts.PriceSeries) ([]bool, error)
}

// Evaluator combines per-rule masks into one technical condition column
// ⭐ SSOT: 기술적 조건 마스크 계산은 여기서만
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates a technical condition evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{logger: log}
}

// Evaluate returns the AND of every enabled rule's mask, aligned to the
// series index. Series shorter than 120 bars evaluate to all-false.
// Malformed specs surface as errors; they are never absorbed.
func (e *Evaluator) Evaluate(s *contracts.PriceSeries, spec *contracts.ConditionSpec) ([]bool, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("condition spec: %w", err)
	}

	mask := make([]bool, s.Len())

	if s.Len() < minHistoryBars {
		e.logger.WithFields(map[string]interface{}{
			"code": s.Code,
			"bars": s.Len(),
		}).Debug("Price history too short for technical rules")
		return mask, nil
	}

	for i := range mask {
		mask[i] = true
	}

	for _, r := range buildRules(spec) {
		ruleMask, err := r.Mask(s)
		if err != nil {
			return nil, err
		}
		for i := range mask {
			mask[i] = mask[i] && ruleMask[i]
		}
	}

	return mask, nil
}

// buildRules maps enabled spec kinds onto rule strategies
func buildRules(spec *contracts.ConditionSpec) []rule {
	var rules []rule
	if spec.Alignment != nil {
		rules = append(rules, alignmentRule{*spec.Alignment})
	}
	if spec.Cross != nil {
		rules = append(rules, crossRule{*spec.Cross})
	}
	if spec.Breakout != nil {
		rules = append(rules, breakoutRule{*spec.Breakout})
	}
	if spec.DailyChange != nil {
		rules = append(rules, changeRule{*spec.DailyChange, sourceClose})
	}
	if spec.VolumeChange != nil {
		rules = append(rules, changeRule{*spec.VolumeChange, sourceVolume})
	}
	return rules
}

func maColumn(s *contracts.PriceSeries, window int) ([]float64, error) {
	col, ok := s.MA(window)
	if !ok {
		return nil, fmt.Errorf("MA%d column not computed", window)
	}
	return col, nil
}

// alignmentRule: MA(fast) > MA(mid) > MA(slow) on the same bar
type alignmentRule struct {
	p contracts.AlignmentRule
}

func (r alignmentRule) Mask(s *contracts.PriceSeries) ([]bool, error) {
	fast, err := maColumn(s, r.p.Fast)
	if err != nil {
		return nil, err
	}
	mid, err := maColumn(s, r.p.Mid)
	if err != nil {
		return nil, err
	}
	slow, err := maColumn(s, r.p.Slow)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, s.Len())
	for i := range mask {
		// NaN rows fail both comparisons
		mask[i] = fast[i] > mid[i] && mid[i] > slow[i]
	}
	return mask, nil
}

// crossRule fires only on the bar where the inequality strictly flips
// (골든크로스/데드크로스 - 지속 구간에서는 발화하지 않음)
type crossRule struct {
	p contracts.CrossRule
}

func (r crossRule) Mask(s *contracts.PriceSeries) ([]bool, error) {
	left, err := maColumn(s, r.p.Left)
	if err != nil {
		return nil, err
	}
	right, err := maColumn(s, r.p.Right)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, s.Len())
	for i := 1; i < s.Len(); i++ {
		mask[i] = r.p.Op.CompareInverse(left[i-1], right[i-1]) &&
			r.p.Op.Compare(left[i], right[i])
	}
	return mask, nil
}

// breakoutRule compares a bar price with one MA, no transition requirement
type breakoutRule struct {
	p contracts.BreakoutRule
}

func (r breakoutRule) Mask(s *contracts.PriceSeries) ([]bool, error) {
	ma, err := maColumn(s, r.p.Window)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, s.Len())
	for i, bar := range s.Bars {
		price := bar.Close
		if r.p.Field == contracts.FieldOpen {
			price = bar.Open
		}
		mask[i] = r.p.Op.Compare(price, ma[i])
	}
	return mask, nil
}

type changeSource int

const (
	sourceClose changeSource = iota
	sourceVolume
)

// changeRule is the banded percent-change condition shared by the daily
// price change and volume change rule kinds
type changeRule struct {
	p   contracts.ChangeRule
	src changeSource
}

func (r changeRule) Mask(s *contracts.PriceSeries) ([]bool, error) {
	var values []float64
	if r.src == sourceVolume {
		values = s.Volumes()
	} else {
		values = s.Closes()
	}

	changes := pctChange(values)
	maxPct := math.Inf(1)
	if r.p.Bounded() {
		maxPct = r.p.MaxPct
	}

	mask := make([]bool, s.Len())
	for i, chg := range changes {
		if math.IsNaN(chg) {
			continue
		}
		if r.p.Direction == contracts.ChangeUp {
			mask[i] = chg >= r.p.MinPct && chg < maxPct
		} else {
			mask[i] = chg <= -r.p.MinPct && chg > -maxPct
		}
	}
	return mask, nil
}
