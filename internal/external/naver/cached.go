package naver

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/logger"
	"github.com/wonny/stockscan/pkg/redis"
)

// priceCacheTTL keeps cached daily bars for one trading session.
const priceCacheTTL = 12 * time.Hour

// CachedPriceProvider wraps a price provider with a Redis read-through
// cache. With Redis disabled every call falls through to the inner
// provider.
type CachedPriceProvider struct {
	inner  contracts.PriceProvider
	cache  *redis.Cache
	logger *logger.Logger
}

func NewCachedPriceProvider(inner contracts.PriceProvider, cache *redis.Cache, log *logger.Logger) *CachedPriceProvider {
	return &CachedPriceProvider{
		inner:  inner,
		cache:  cache,
		logger: log,
	}
}

// FetchPrices implements contracts.PriceProvider.
func (p *CachedPriceProvider) FetchPrices(ctx context.Context, stockCode string, from, to time.Time) (*contracts.PriceSeries, error) {
	key := fmt.Sprintf("prices:%s:%s:%s", stockCode, from.Format("20060102"), to.Format("20060102"))

	var bars []contracts.PriceBar
	hit, err := p.cache.Get(ctx, key, &bars)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Price cache read failed")
	}
	if hit {
		return contracts.NewPriceSeries(stockCode, bars), nil
	}

	series, err := p.inner.FetchPrices(ctx, stockCode, from, to)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, series.Bars, priceCacheTTL); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Price cache write failed")
	}
	return series, nil
}
