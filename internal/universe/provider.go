// Package universe resolves the set of securities a scan runs over.
package universe

import (
	"context"
	"fmt"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/external/naver"
	"github.com/wonny/stockscan/pkg/logger"
)

// Provider lists the top securities of a market by capitalization.
// ⭐ SSOT: 스캔 유니버스 결정은 이 패키지에서만
type Provider struct {
	client *naver.Client
	logger *logger.Logger
	topN   int
}

// NewProvider creates a market-cap ranked universe provider. topN <= 0
// means no cap.
func NewProvider(client *naver.Client, log *logger.Logger, topN int) *Provider {
	return &Provider{
		client: client,
		logger: log,
		topN:   topN,
	}
}

// ListSecurities implements contracts.UniverseProvider.
func (p *Provider) ListSecurities(ctx context.Context, market contracts.Market) ([]contracts.Security, error) {
	securities, err := p.client.MarketCapRanking(ctx, market, p.topN)
	if err != nil {
		return nil, fmt.Errorf("list %s universe: %w", market, err)
	}
	if len(securities) == 0 {
		return nil, contracts.ErrNoData
	}
	return securities, nil
}
