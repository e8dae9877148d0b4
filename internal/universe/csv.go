package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/wonny/stockscan/internal/contracts"
)

var stockCodeRe = regexp.MustCompile(`^\d{6}$`)

// FileProvider serves a fixed security list loaded from a CSV file. It
// takes precedence over market lookups when an override file is given,
// so the market argument is ignored.
type FileProvider struct {
	securities []contracts.Security
}

// LoadCSV reads a code,name override file. A header row is recognized
// by its non-numeric first column and skipped.
func LoadCSV(path string) (*FileProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}

	var securities []contracts.Security
	seen := make(map[string]bool)
	for i, row := range rows {
		if len(row) < 1 {
			continue
		}
		code := strings.TrimSpace(row[0])
		if code == "" {
			continue
		}
		if !stockCodeRe.MatchString(code) {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("universe file line %d: invalid stock code %q", i+1, code)
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		name := ""
		if len(row) > 1 {
			name = strings.TrimSpace(row[1])
		}
		securities = append(securities, contracts.Security{Code: code, Name: name})
	}

	if len(securities) == 0 {
		return nil, fmt.Errorf("universe file %s contains no securities", path)
	}
	return &FileProvider{securities: securities}, nil
}

// NewStaticProvider wraps an in-memory security list.
func NewStaticProvider(securities []contracts.Security) *FileProvider {
	return &FileProvider{securities: securities}
}

// ListSecurities implements contracts.UniverseProvider.
func (p *FileProvider) ListSecurities(_ context.Context, _ contracts.Market) ([]contracts.Security, error) {
	if len(p.securities) == 0 {
		return nil, contracts.ErrNoData
	}
	out := make([]contracts.Security, len(p.securities))
	copy(out, p.securities)
	return out, nil
}
