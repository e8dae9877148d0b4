// Package preset loads named screen definitions from YAML files. A
// preset bundles the technical and fundamental condition specs with the
// scan parameters an analyst would otherwise pass by hand.
package preset

import (
	"fmt"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
)

// Preset is one saved screen.
type Preset struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Market        contracts.Market                    `yaml:"market" json:"market"`
	Technical     *contracts.ConditionSpec            `yaml:"technical" json:"technical"`
	Fundamental   *contracts.FundamentalConditionSpec `yaml:"fundamental,omitempty" json:"fundamental,omitempty"`
	HorizonDays   int                                 `yaml:"horizon_days" json:"horizon_days"`
	WindowDays    int                                 `yaml:"window_days" json:"window_days"`
	MinWinRatePct float64                             `yaml:"min_win_rate_pct" json:"min_win_rate_pct"`
	TopN          int                                 `yaml:"top_n,omitempty" json:"top_n,omitempty"`
}

// Validate checks the preset is runnable.
func Validate(p *Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset: name is required")
	}
	if !p.Market.Valid() {
		return fmt.Errorf("preset %s: unknown market %q", p.Name, p.Market)
	}
	if p.Technical == nil || p.Technical.IsEmpty() {
		return fmt.Errorf("preset %s: at least one technical condition is required", p.Name)
	}
	if err := p.Technical.Validate(); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	if err := p.Fundamental.Validate(); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	if p.HorizonDays < 1 {
		return fmt.Errorf("preset %s: horizon_days must be at least 1", p.Name)
	}
	if p.WindowDays < 1 {
		return fmt.Errorf("preset %s: window_days must be at least 1", p.Name)
	}
	if p.MinWinRatePct < 0 || p.MinWinRatePct > 100 {
		return fmt.Errorf("preset %s: min_win_rate_pct must be within [0, 100]", p.Name)
	}
	return nil
}

// Window resolves the evaluation window ending at `end`.
func (p *Preset) Window(end time.Time) (time.Time, time.Time) {
	return end.AddDate(0, 0, -p.WindowDays), end
}
