package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/stockscan/internal/contracts"
)

const rankingPageSize = 100

// rankedSecurity carries the market cap so merged markets can be re-sorted.
type rankedSecurity struct {
	contracts.Security
	MarketCap float64
}

// rankingItem is one row of the stock.naver.com market-cap ranking API.
type rankingItem struct {
	ItemCode  string `json:"itemcode"`
	ItemName  string `json:"itemname"`
	MarketSum string `json:"marketSum"` // 시가총액, 쉼표 포함
}

// MarketCapRanking fetches the top securities of a market ordered by
// market capitalization. When the JSON API is unavailable it falls back
// to scraping the finance.naver.com market-sum pages.
// ⭐ SSOT: 시가총액 순위 조회는 이 함수에서만
func (c *Client) MarketCapRanking(ctx context.Context, market contracts.Market, limit int) ([]contracts.Security, error) {
	var ranked []rankedSecurity
	switch market {
	case contracts.MarketAll:
		kospi, err := c.marketRanking(ctx, contracts.MarketKOSPI, limit)
		if err != nil {
			return nil, err
		}
		kosdaq, err := c.marketRanking(ctx, contracts.MarketKOSDAQ, limit)
		if err != nil {
			return nil, err
		}
		ranked = append(kospi, kosdaq...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].MarketCap > ranked[j].MarketCap
		})
	default:
		var err error
		ranked, err = c.marketRanking(ctx, market, limit)
		if err != nil {
			return nil, err
		}
	}

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	securities := make([]contracts.Security, len(ranked))
	for i, r := range ranked {
		securities[i] = r.Security
	}

	c.logger.WithFields(map[string]interface{}{
		"market": market,
		"count":  len(securities),
	}).Debug("Fetched market cap ranking")
	return securities, nil
}

func (c *Client) marketRanking(ctx context.Context, market contracts.Market, limit int) ([]rankedSecurity, error) {
	ranked, err := c.rankingFromAPI(ctx, market, limit)
	if err == nil {
		return ranked, nil
	}

	c.logger.WithError(err).WithField("market", market).Warn("Ranking API failed, falling back to HTML")
	return c.rankingFromHTML(ctx, market, limit)
}

// rankingFromAPI pages through the market-cap ranking JSON endpoint.
func (c *Client) rankingFromAPI(ctx context.Context, market contracts.Market, limit int) ([]rankedSecurity, error) {
	var ranked []rankedSecurity
	maxPages := 15
	if limit > 0 {
		maxPages = (limit + rankingPageSize - 1) / rankingPageSize
	}

	for page := 1; page <= maxPages; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fullURL := fmt.Sprintf(
			"%s/api/domestic/market/stock/default?orderType=marketSum&marketType=%s&page=%d&pageSize=%d",
			c.marketBaseURL, market, page, rankingPageSize,
		)

		body, err := c.fetch(ctx, fullURL)
		if err != nil {
			return nil, fmt.Errorf("fetch ranking page %d: %w", page, err)
		}

		var items []rankingItem
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode ranking page %d: %w", page, err)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			capStr := strings.ReplaceAll(item.MarketSum, ",", "")
			marketCap, _ := strconv.ParseFloat(capStr, 64)
			ranked = append(ranked, rankedSecurity{
				Security:  contracts.Security{Code: item.ItemCode, Name: item.ItemName},
				MarketCap: marketCap,
			})
		}
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("ranking API returned no rows for %s", market)
	}
	return ranked, nil
}

// sosok query values of the finance.naver.com market-sum pages
var marketSosok = map[contracts.Market]string{
	contracts.MarketKOSPI:  "0",
	contracts.MarketKOSDAQ: "1",
}

var itemCodeRe = regexp.MustCompile(`code=(\d{6})`)

// rankingFromHTML scrapes finance.naver.com/sise/sise_market_sum.naver.
// Rows are already in descending market-cap order.
func (c *Client) rankingFromHTML(ctx context.Context, market contracts.Market, limit int) ([]rankedSecurity, error) {
	sosok, ok := marketSosok[market]
	if !ok {
		return nil, fmt.Errorf("no market-sum page for market %s", market)
	}

	var ranked []rankedSecurity
	// 50 rows per page
	maxPages := 20
	if limit > 0 {
		maxPages = (limit + 49) / 50
	}

	for page := 1; page <= maxPages; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		params := url.Values{}
		params.Set("sosok", sosok)
		params.Set("page", strconv.Itoa(page))

		body, err := c.fetchHTML(ctx, "/sise/sise_market_sum.naver", params)
		if err != nil {
			return nil, fmt.Errorf("fetch market-sum page %d: %w", page, err)
		}

		rows, err := parseMarketSumHTML(string(body))
		if err != nil {
			return nil, fmt.Errorf("parse market-sum page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}
		ranked = append(ranked, rows...)
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("market-sum pages returned no rows for %s", market)
	}
	return ranked, nil
}

func parseMarketSumHTML(html string) ([]rankedSecurity, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var ranked []rankedSecurity
	doc.Find("table.type_2 tr").Each(func(i int, row *goquery.Selection) {
		link := row.Find("a.tltle").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		m := itemCodeRe.FindStringSubmatch(href)
		if m == nil {
			return
		}

		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}

		// 시가총액은 7번째 셀 (N, 종목명, 현재가, 전일비, 등락률, 액면가, 시가총액)
		capText := strings.TrimSpace(row.Find("td").Eq(6).Text())
		capText = strings.ReplaceAll(capText, ",", "")
		marketCap, _ := strconv.ParseFloat(capText, 64)

		ranked = append(ranked, rankedSecurity{
			Security:  contracts.Security{Code: m[1], Name: name},
			MarketCap: marketCap,
		})
	})
	return ranked, nil
}
