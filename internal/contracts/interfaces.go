package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrNoData marks "the provider returned nothing" outcomes that resolve to
// an explicit empty result, never a hard failure
var ErrNoData = errors.New("no data available")

// Market filters the security universe
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
	MarketAll    Market = "ALL"
)

// Valid reports whether the market filter is known
func (m Market) Valid() bool {
	return m == MarketKOSPI || m == MarketKOSDAQ || m == MarketAll
}

// Security identifies one tradable stock
type Security struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PriceProvider fetches daily OHLCV bars.
// 이동평균 계산을 위해 호출자가 분석 시작일보다 앞선 from을 넘긴다.
type PriceProvider interface {
	FetchPrices(ctx context.Context, code string, from, to time.Time) (*PriceSeries, error)
}

// FilingProvider fetches raw statement line items by fiscal-year range.
// Credential problems and empty responses must degrade to an empty slice
// or error that the caller resolves to "fundamental gate = false".
type FilingProvider interface {
	FetchFilings(ctx context.Context, code string, fromYear, toYear int) ([]FilingRecord, error)
}

// UniverseProvider lists securities ordered by market capitalization
type UniverseProvider interface {
	ListSecurities(ctx context.Context, market Market) ([]Security, error)
}
