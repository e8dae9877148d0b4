package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/stockscan/internal/contracts"
)

// DART reprt_code values per periodic report
var reportParams = map[contracts.ReportCode]string{
	contracts.ReportQ1:     "11013",
	contracts.ReportH1:     "11012",
	contracts.ReportQ3:     "11014",
	contracts.ReportAnnual: "11011",
}

// statementResponse represents the fnlttSinglAcnt.json payload
type statementResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	List    []statementItem `json:"list"`
}

type statementItem struct {
	StockCode    string `json:"stock_code"`
	FSDiv        string `json:"fs_div"` // CFS: 연결, OFS: 별도
	AccountName  string `json:"account_nm"`
	ThstrmAmount string `json:"thstrm_amount"` // 당기 금액, 쉼표 포함
}

const (
	statusOK        = "000"
	statusNoData    = "013"
	statusRateLimit = "020"
)

// FetchFilings fetches periodic financial statements for a stock across
// an inclusive fiscal-year range. Periods without a filing are skipped.
// ⭐ SSOT: DART 재무제표 호출은 이 함수에서만
func (c *Client) FetchFilings(ctx context.Context, stockCode string, fromYear, toYear int) ([]contracts.FilingRecord, error) {
	corpCode, err := c.CorpCode(ctx, stockCode)
	if err != nil {
		return nil, fmt.Errorf("resolve corp code for %s: %w", stockCode, err)
	}

	var records []contracts.FilingRecord
	for year := fromYear; year <= toYear; year++ {
		for _, report := range []contracts.ReportCode{
			contracts.ReportQ1, contracts.ReportH1, contracts.ReportQ3, contracts.ReportAnnual,
		} {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			periodRecords, err := c.fetchStatement(ctx, stockCode, corpCode, year, report)
			if err != nil {
				return nil, err
			}
			records = append(records, periodRecords...)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"from_year":  fromYear,
		"to_year":    toYear,
		"count":      len(records),
	}).Debug("Fetched filings")
	return records, nil
}

func (c *Client) fetchStatement(ctx context.Context, stockCode, corpCode string, year int, report contracts.ReportCode) ([]contracts.FilingRecord, error) {
	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bsns_year", strconv.Itoa(year))
	params.Set("reprt_code", reportParams[report])

	body, err := c.get(ctx, "/api/fnlttSinglAcnt.json", params)
	if err != nil {
		return nil, fmt.Errorf("fetch statement %d/%s for %s: %w", year, report, stockCode, err)
	}

	var resp statementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode statement %d/%s for %s: %w", year, report, stockCode, err)
	}

	switch resp.Status {
	case statusOK:
	case statusNoData:
		return nil, nil // 미제출 기간
	case statusRateLimit:
		return nil, fmt.Errorf("DART API usage limit exceeded: %s", resp.Message)
	default:
		return nil, fmt.Errorf("DART API error %s: %s", resp.Status, resp.Message)
	}

	records := make([]contracts.FilingRecord, 0, len(resp.List))
	for _, item := range resp.List {
		amount, ok := parseAmount(item.ThstrmAmount)
		if !ok {
			continue
		}
		records = append(records, contracts.FilingRecord{
			StockCode:    stockCode,
			FiscalYear:   year,
			Report:       report,
			Account:      strings.TrimSpace(item.AccountName),
			Amount:       amount,
			Consolidated: item.FSDiv == "CFS",
		})
	}
	return records, nil
}

// parseAmount parses a comma-grouped DART amount. Blank and dash cells
// mean the account was not reported for the period.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
