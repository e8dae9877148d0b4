package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/wonny/stockscan/pkg/config"
	"github.com/wonny/stockscan/pkg/httputil"
	"github.com/wonny/stockscan/pkg/logger"
)

// browserUA makes the chart and ranking endpoints answer like they would
// for a real browser session.
const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient     *httputil.Client
	logger         *logger.Logger
	chartBaseURL   string
	marketBaseURL  string
	financeBaseURL string
}

// NewClient creates a new Naver Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.NaverConfig) *Client {
	return &Client{
		httpClient:     httpClient,
		logger:         log,
		chartBaseURL:   cfg.ChartBaseURL,
		marketBaseURL:  cfg.MarketBaseURL,
		financeBaseURL: cfg.FinanceBaseURL,
	}
}

// fetch performs a GET with browser-like headers and returns the body.
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": browserUA,
		"Referer":    c.financeBaseURL + "/",
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}
	return body, nil
}

// fetchHTML fetches an HTML page from finance.naver.com
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := fmt.Sprintf("%s%s", c.financeBaseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}
	return c.fetch(ctx, fullURL)
}
