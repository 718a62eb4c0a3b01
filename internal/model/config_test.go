package model

import (
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
}

func TestValidate_DomainRates(t *testing.T) {
	tests := []struct {
		rate    DomainRate
		wantErr bool
	}{
		{DomainRate{Domain: "en.wikipedia.org", RequestsPerSecond: 1, Burst: 2}, false},
		{DomainRate{Domain: "en.wikipedia.org", RequestsPerSecond: 1}, false},
		{DomainRate{Domain: "", RequestsPerSecond: 1}, true},
		{DomainRate{Domain: "example.com", RequestsPerSecond: 0}, true},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Evidence.DomainRates = []DomainRate{tt.rate}
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
		}
	}
}

func TestValidate_FillsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.OutboxSize = 0
	cfg.Pipeline.RunTimeout = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Server.OutboxSize != DefaultConfig().Server.OutboxSize {
		t.Errorf("Expected default outbox size, got %d", cfg.Server.OutboxSize)
	}
	if cfg.Pipeline.RunTimeout != DefaultConfig().Pipeline.RunTimeout {
		t.Errorf("Expected default run timeout, got %v", cfg.Pipeline.RunTimeout)
	}
}
