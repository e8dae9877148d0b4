package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"
)

// corpDirectory maps 6-digit stock codes to 8-digit DART corp codes.
// DART financial endpoints key on corp_code, not the ticker.
type corpDirectory struct {
	mu     sync.RWMutex
	byCode map[string]string
}

func newCorpDirectory() *corpDirectory {
	return &corpDirectory{}
}

func (d *corpDirectory) lookup(stockCode string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.byCode == nil {
		return "", false
	}
	corpCode, ok := d.byCode[stockCode]
	return corpCode, ok
}

func (d *corpDirectory) loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byCode != nil
}

func (d *corpDirectory) replace(byCode map[string]string) {
	d.mu.Lock()
	d.byCode = byCode
	d.mu.Unlock()
}

// corpCodeXML mirrors the CORPCODE.xml document inside the zip archive.
type corpCodeXML struct {
	XMLName xml.Name       `xml:"result"`
	List    []corpCodeItem `xml:"list"`
}

type corpCodeItem struct {
	CorpCode  string `xml:"corp_code"`
	CorpName  string `xml:"corp_name"`
	StockCode string `xml:"stock_code"`
}

// CorpCode resolves a stock code to its DART corp code, downloading the
// corp-code directory on first use.
func (c *Client) CorpCode(ctx context.Context, stockCode string) (string, error) {
	if !c.corp.loaded() {
		if err := c.loadCorpDirectory(ctx); err != nil {
			return "", err
		}
	}

	corpCode, ok := c.corp.lookup(stockCode)
	if !ok {
		return "", fmt.Errorf("no corp code registered for stock %s", stockCode)
	}
	return corpCode, nil
}

const corpCodeCacheKey = "dart:corpcode"

const corpCodeCacheTTL = 24 * time.Hour

// loadCorpDirectory downloads and indexes the zipped corp-code directory,
// going through the cross-process cache when one is configured.
// ⭐ SSOT: corp_code 매핑 다운로드는 이 함수에서만
func (c *Client) loadCorpDirectory(ctx context.Context) error {
	if c.cache != nil {
		var byCode map[string]string
		hit, err := c.cache.Get(ctx, corpCodeCacheKey, &byCode)
		if err != nil {
			c.logger.WithError(err).Warn("Corp code cache read failed")
		}
		if hit && len(byCode) > 0 {
			c.corp.replace(byCode)
			return nil
		}
	}

	body, err := c.get(ctx, "/api/corpCode.xml", url.Values{})
	if err != nil {
		return fmt.Errorf("download corp code archive: %w", err)
	}

	byCode, err := parseCorpCodeZip(body)
	if err != nil {
		return err
	}

	c.corp.replace(byCode)
	c.logger.WithField("count", len(byCode)).Info("Loaded DART corp code directory")

	if c.cache != nil {
		if err := c.cache.Set(ctx, corpCodeCacheKey, byCode, corpCodeCacheTTL); err != nil {
			c.logger.WithError(err).Warn("Corp code cache write failed")
		}
	}
	return nil
}

// parseCorpCodeZip extracts CORPCODE.xml from the archive and indexes
// listed companies. Unlisted entries have a blank stock_code and are
// skipped.
func parseCorpCodeZip(data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open corp code archive: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, "CORPCODE.xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		xmlData, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		break
	}
	if xmlData == nil {
		return nil, fmt.Errorf("CORPCODE.xml not found in archive")
	}

	var doc corpCodeXML
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return nil, fmt.Errorf("parse CORPCODE.xml: %w", err)
	}

	byCode := make(map[string]string, len(doc.List))
	for _, item := range doc.List {
		stockCode := strings.TrimSpace(item.StockCode)
		if stockCode == "" {
			continue
		}
		byCode[stockCode] = strings.TrimSpace(item.CorpCode)
	}

	if len(byCode) == 0 {
		return nil, fmt.Errorf("corp code directory contains no listed companies")
	}
	return byCode, nil
}
