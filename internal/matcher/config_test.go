package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MinutesThreshold != 30 {
		t.Errorf("MinutesThreshold = %d, want 30", config.MinutesThreshold)
	}
	if !config.AmountTolerance.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("AmountTolerance = %s, want 0.01", config.AmountTolerance)
	}
	if !config.Commission.Equal(decimal.NewFromFloat(1.009)) {
		t.Errorf("Commission = %s, want 1.009", config.Commission)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero threshold", func(c *Config) { c.MinutesThreshold = 0 }, true},
		{"negative threshold", func(c *Config) { c.MinutesThreshold = -5 }, true},
		{"negative tolerance", func(c *Config) { c.AmountTolerance = decimal.NewFromFloat(-0.01) }, true},
		{"zero tolerance allowed", func(c *Config) { c.AmountTolerance = decimal.Zero }, false},
		{"zero commission", func(c *Config) { c.Commission = decimal.Zero }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	if clone == original {
		t.Fatal("Expected clone to be a distinct instance")
	}

	clone.MinutesThreshold = 99
	if original.MinutesThreshold == 99 {
		t.Error("Mutating the clone changed the original")
	}

	var nilConfig *Config
	if nilConfig.Clone() != nil {
		t.Error("Expected nil clone of nil config")
	}
}
