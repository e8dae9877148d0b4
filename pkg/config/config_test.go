package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Scan.Workers != 4 {
		t.Errorf("Expected Scan.Workers to be 4, got %d", cfg.Scan.Workers)
	}

	if cfg.Scan.MinWinRate != 50.0 {
		t.Errorf("Expected Scan.MinWinRate to be 50, got %f", cfg.Scan.MinWinRate)
	}

	if cfg.HasDatabase() && os.Getenv("DATABASE_URL") == "" {
		t.Error("HasDatabase() should be false without DATABASE_URL")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("SCAN_WORKERS", "8")
	os.Setenv("SCAN_MIN_WIN_RATE", "70")
	os.Setenv("LOG_LEVEL", "warn")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("SCAN_WORKERS")
		os.Unsetenv("SCAN_MIN_WIN_RATE")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Scan.Workers != 8 {
		t.Errorf("Expected Scan.Workers to be 8, got %d", cfg.Scan.Workers)
	}

	if cfg.Scan.MinWinRate != 70.0 {
		t.Errorf("Expected Scan.MinWinRate to be 70, got %f", cfg.Scan.MinWinRate)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("Expected LogLevel to be warn, got %s", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad env", func(c *Config) { c.Env = "prod" }, true},
		{"zero workers", func(c *Config) { c.Scan.Workers = 0 }, true},
		{"zero horizon", func(c *Config) { c.Scan.HorizonDays = 0 }, true},
		{"win rate over 100", func(c *Config) { c.Scan.MinWinRate = 101 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Env: "development",
				Scan: ScanConfig{
					Workers:     4,
					MinWinRate:  50,
					HorizonDays: 5,
				},
			}
			tt.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
