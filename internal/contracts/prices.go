package contracts

import (
	"fmt"
	"time"
)

// PriceBar represents one trading day of OHLCV data for one stock
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ascending-by-date bar sequence plus derived columns.
// 파생 컬럼(이동평균, Signal)은 실행마다 다시 계산하며 저장하지 않는다.
type PriceSeries struct {
	Code string     `json:"code"`
	Bars []PriceBar `json:"bars"`

	// Derived columns, keyed/aligned to Bars. NaN marks undefined MA rows.
	mas    map[int][]float64
	signal []bool
}

// NewPriceSeries wraps bars into a series. Bars must already be ascending
// by date with unique dates; providers guarantee this.
func NewPriceSeries(code string, bars []PriceBar) *PriceSeries {
	return &PriceSeries{
		Code: code,
		Bars: bars,
		mas:  make(map[int][]float64),
	}
}

// Len returns the number of bars
func (s *PriceSeries) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series has no bars
func (s *PriceSeries) Empty() bool {
	return len(s.Bars) == 0
}

// Closes returns the close column
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume column
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// SetMA stores a moving-average column for a window length
func (s *PriceSeries) SetMA(window int, values []float64) error {
	if len(values) != len(s.Bars) {
		return fmt.Errorf("MA%d column length %d != series length %d", window, len(values), len(s.Bars))
	}
	if s.mas == nil {
		s.mas = make(map[int][]float64)
	}
	s.mas[window] = values
	return nil
}

// MA returns the moving-average column for a window length
func (s *PriceSeries) MA(window int) ([]float64, bool) {
	values, ok := s.mas[window]
	return values, ok
}

// HasMA reports whether the MA column for a window exists
func (s *PriceSeries) HasMA(window int) bool {
	_, ok := s.mas[window]
	return ok
}

// SetSignal stores the combined condition column
func (s *PriceSeries) SetSignal(mask []bool) error {
	if len(mask) != len(s.Bars) {
		return fmt.Errorf("signal column length %d != series length %d", len(mask), len(s.Bars))
	}
	s.signal = mask
	return nil
}

// Signal returns the combined condition column (nil until set)
func (s *PriceSeries) Signal() []bool {
	return s.signal
}

// Dates returns the trading-day calendar of the series
func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// IndexRange returns the half-open index range [lo, hi) of bars whose date
// falls inside [start, end]. An empty range returns lo == hi.
func (s *PriceSeries) IndexRange(start, end time.Time) (int, int) {
	lo := len(s.Bars)
	for i, b := range s.Bars {
		if !b.Date.Before(start) {
			lo = i
			break
		}
	}

	hi := lo
	for i := lo; i < len(s.Bars); i++ {
		if s.Bars[i].Date.After(end) {
			break
		}
		hi = i + 1
	}

	return lo, hi
}
