package preset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads one preset file.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", path, err)
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadDir reads every .yaml/.yml preset in a directory, sorted by name.
func LoadDir(dir string) ([]*Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read preset dir: %w", err)
	}

	var presets []*Preset
	names := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		p, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if prev, dup := names[p.Name]; dup {
			return nil, fmt.Errorf("preset name %q defined in both %s and %s", p.Name, prev, entry.Name())
		}
		names[p.Name] = entry.Name()
		presets = append(presets, p)
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// Find returns the named preset from a directory.
func Find(dir, name string) (*Preset, error) {
	presets, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("preset %q not found in %s", name, dir)
}

// Hash generates a SHA256 fingerprint of a preset (canonical JSON).
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(p *Preset) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
