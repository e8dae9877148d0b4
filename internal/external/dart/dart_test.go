package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/pkg/config"
	"github.com/wonny/stockscan/pkg/logger"
)

const corpCodeXMLBody = `<?xml version="1.0" encoding="UTF-8"?>
<result>
	<list>
		<corp_code>00126380</corp_code>
		<corp_name>삼성전자</corp_name>
		<stock_code>005930</stock_code>
	</list>
	<list>
		<corp_code>00999999</corp_code>
		<corp_name>비상장회사</corp_name>
		<stock_code> </stock_code>
	</list>
</result>`

func corpCodeZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("CORPCODE.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(corpCodeXMLBody)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestParseCorpCodeZip(t *testing.T) {
	byCode, err := parseCorpCodeZip(corpCodeZip(t))
	if err != nil {
		t.Fatalf("parseCorpCodeZip() error = %v", err)
	}

	if got := byCode["005930"]; got != "00126380" {
		t.Errorf("corp code for 005930 = %q, want 00126380", got)
	}
	if _, ok := byCode["00999999"]; ok {
		t.Error("unlisted company indexed, want skipped")
	}
	if len(byCode) != 1 {
		t.Errorf("len(byCode) = %d, want 1", len(byCode))
	}
}

func TestParseCorpCodeZipNotAnArchive(t *testing.T) {
	if _, err := parseCorpCodeZip([]byte("not a zip")); err == nil {
		t.Error("parseCorpCodeZip() expected error for malformed archive")
	}
}

func TestFetchFilingsWithoutCredentials(t *testing.T) {
	client := NewClient(config.DARTConfig{BaseURL: "http://localhost"}, logger.NewNop())
	if _, err := client.FetchFilings(context.Background(), "005930", 2022, 2022); err == nil {
		t.Error("FetchFilings() expected error without API key")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"4,500,000,000", 4500000000, true},
		{"-1,234", -1234, true},
		{"0", 0, true},
		{"-", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseAmount(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseAmount(%q) = (%v, %v), want (%v, %v)",
					tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFetchFilings(t *testing.T) {
	archive := corpCodeZip(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("crtfc_key") != "test-key" {
			t.Errorf("missing crtfc_key parameter")
		}

		switch r.URL.Path {
		case "/api/corpCode.xml":
			w.Write(archive)
		case "/api/fnlttSinglAcnt.json":
			if r.URL.Query().Get("corp_code") != "00126380" {
				t.Errorf("corp_code = %q, want 00126380", r.URL.Query().Get("corp_code"))
			}
			// Only the 2022 annual report exists.
			if r.URL.Query().Get("reprt_code") != "11011" {
				json.NewEncoder(w).Encode(statementResponse{Status: "013", Message: "조회된 데이타가 없습니다."})
				return
			}
			json.NewEncoder(w).Encode(statementResponse{
				Status: "000",
				List: []statementItem{
					{StockCode: "005930", FSDiv: "CFS", AccountName: "매출액", ThstrmAmount: "302,231,360,000,000"},
					{StockCode: "005930", FSDiv: "OFS", AccountName: "매출액", ThstrmAmount: "211,867,483,000,000"},
					{StockCode: "005930", FSDiv: "CFS", AccountName: "영업이익", ThstrmAmount: "-"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(config.DARTConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NewNop())
	records, err := client.FetchFilings(context.Background(), "005930", 2022, 2022)
	if err != nil {
		t.Fatalf("FetchFilings() error = %v", err)
	}

	// Dash amount dropped; two revenue rows survive.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.FiscalYear != 2022 || first.Report != contracts.ReportAnnual {
		t.Errorf("period = %d/%s, want 2022 annual", first.FiscalYear, first.Report)
	}
	if !first.Consolidated {
		t.Error("CFS row not flagged consolidated")
	}
	if records[1].Consolidated {
		t.Error("OFS row flagged consolidated")
	}
}

func TestFetchFilingsRateLimited(t *testing.T) {
	archive := corpCodeZip(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/corpCode.xml" {
			w.Write(archive)
			return
		}
		json.NewEncoder(w).Encode(statementResponse{Status: "020", Message: "사용한도를 초과하였습니다."})
	}))
	defer srv.Close()

	client := NewClient(config.DARTConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NewNop())
	if _, err := client.FetchFilings(context.Background(), "005930", 2022, 2022); err == nil {
		t.Error("FetchFilings() expected error when rate limited")
	}
}

func TestCorpCodeUnknownStock(t *testing.T) {
	archive := corpCodeZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	client := NewClient(config.DARTConfig{APIKey: "test-key", BaseURL: srv.URL}, logger.NewNop())
	if _, err := client.CorpCode(context.Background(), "999999"); err == nil {
		t.Error("CorpCode() expected error for unknown stock code")
	}
}
