package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/stockscan/internal/contracts"
)

// FetchPrices fetches daily OHLCV bars for a stock from the Naver chart API.
// Bars come back in ascending trade-date order.
// ⭐ SSOT: 일봉 시세 조회는 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, stockCode string, from, to time.Time) (*contracts.PriceSeries, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartBaseURL, stockCode, from.Format("20060102"), to.Format("20060102"),
	)

	body, err := c.fetch(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", stockCode, err)
	}

	bars, err := parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse prices for %s: %w", stockCode, err)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(bars),
	}).Debug("Fetched prices")
	return contracts.NewPriceSeries(stockCode, bars), nil
}

// parsePriceResponse parses the quasi-JSON chart payload. The endpoint
// returns single-quoted arrays, so normalize quotes before decoding.
func parsePriceResponse(body string) ([]contracts.PriceBar, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}

	// Fallback to regex parsing
	return parsePriceRegex(body)
}

func parsePriceJSON(rawData [][]interface{}) ([]contracts.PriceBar, error) {
	var bars []contracts.PriceBar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // skip header row
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := parseTradeDate(dateStr)
		if err != nil {
			continue
		}

		bars = append(bars, contracts.PriceBar{
			Date:   tradeDate,
			Open:   toFloat64(row[1]),
			High:   toFloat64(row[2]),
			Low:    toFloat64(row[3]),
			Close:  toFloat64(row[4]),
			Volume: toFloat64(row[5]),
		})
	}
	return bars, nil
}

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\]`)

func parsePriceRegex(body string) ([]contracts.PriceBar, error) {
	matches := priceRowRe.FindAllStringSubmatch(body, -1)

	var bars []contracts.PriceBar
	for _, match := range matches {
		if len(match) < 7 {
			continue
		}

		tradeDate, err := parseTradeDate(match[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(match[2], 64)
		high, _ := strconv.ParseFloat(match[3], 64)
		low, _ := strconv.ParseFloat(match[4], 64)
		closePrice, _ := strconv.ParseFloat(match[5], 64)
		volume, _ := strconv.ParseFloat(match[6], 64)

		bars = append(bars, contracts.PriceBar{
			Date:   tradeDate,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return bars, nil
}

func parseTradeDate(s string) (time.Time, error) {
	s = strings.Trim(s, "\"")
	if len(s) == 8 {
		s = s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return time.Parse("2006-01-02", s)
}

// toFloat64 converts the mixed types the chart API emits
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(val, 64)
		return n
	default:
		return 0
	}
}
