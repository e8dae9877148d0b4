package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/config"
	"github.com/wonny/stockscan/pkg/httputil"
	"github.com/wonny/stockscan/pkg/logger"
)

func newTestClient(t *testing.T, srvURL string) *Client {
	t.Helper()
	log := logger.NewNop()
	return NewClient(httputil.New(log).DisableRetry(), log, config.NaverConfig{
		ChartBaseURL:   srvURL,
		MarketBaseURL:  srvURL,
		FinanceBaseURL: srvURL,
	})
}

func TestMarketCapRankingFromAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"itemcode":"005930","itemname":"삼성전자","marketSum":"4,000,000"},
			{"itemcode":"000660","itemname":"SK하이닉스","marketSum":"1,200,000"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	securities, err := client.MarketCapRanking(context.Background(), contracts.MarketKOSPI, 10)
	if err != nil {
		t.Fatalf("MarketCapRanking() error = %v", err)
	}

	if len(securities) != 2 {
		t.Fatalf("got %d securities, want 2", len(securities))
	}
	if securities[0].Code != "005930" || securities[0].Name != "삼성전자" {
		t.Errorf("first security = %+v, want 005930 삼성전자", securities[0])
	}
}

func TestMarketCapRankingHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"itemcode":"005930","itemname":"삼성전자","marketSum":"4,000,000"},
			{"itemcode":"000660","itemname":"SK하이닉스","marketSum":"1,200,000"},
			{"itemcode":"035420","itemname":"NAVER","marketSum":"300,000"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	securities, err := client.MarketCapRanking(context.Background(), contracts.MarketKOSPI, 2)
	if err != nil {
		t.Fatalf("MarketCapRanking() error = %v", err)
	}
	if len(securities) != 2 {
		t.Errorf("got %d securities, want limit 2", len(securities))
	}
}

func TestMarketCapRankingFallsBackToHTML(t *testing.T) {
	page := `<html><body><table class="type_2">
		<tr><th>N</th></tr>
		<tr>
			<td class="no">1</td>
			<td><a href="/item/main.naver?code=005930" class="tltle">삼성전자</a></td>
			<td>72,500</td><td>+500</td><td>+0.69%</td><td>100</td>
			<td>4,328,123</td>
		</tr>
	</table></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sise/sise_market_sum.naver" {
			if r.URL.Query().Get("page") != "1" {
				w.Write([]byte(`<html><body><table class="type_2"></table></body></html>`))
				return
			}
			w.Write([]byte(page))
			return
		}
		// Ranking API is down.
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	securities, err := client.MarketCapRanking(context.Background(), contracts.MarketKOSPI, 10)
	if err != nil {
		t.Fatalf("MarketCapRanking() error = %v", err)
	}

	if len(securities) != 1 {
		t.Fatalf("got %d securities, want 1", len(securities))
	}
	if securities[0].Code != "005930" {
		t.Errorf("code = %s, want 005930", securities[0].Code)
	}
}

func TestParseMarketSumHTMLSkipsNonDataRows(t *testing.T) {
	html := `<table class="type_2">
		<tr><th>헤더</th></tr>
		<tr><td colspan="10"></td></tr>
		<tr>
			<td>2</td>
			<td><a href="/item/main.naver?code=000660" class="tltle">SK하이닉스</a></td>
			<td>130,000</td><td>0</td><td>0.00%</td><td>5000</td><td>946,120</td>
		</tr>
	</table>`

	rows, err := parseMarketSumHTML(html)
	if err != nil {
		t.Fatalf("parseMarketSumHTML() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Code != "000660" {
		t.Errorf("code = %s, want 000660", rows[0].Code)
	}
	if rows[0].MarketCap != 946120 {
		t.Errorf("market cap = %v, want 946120", rows[0].MarketCap)
	}
}
