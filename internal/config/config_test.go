package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"loss above one", func(c *Config) { c.Loss = 1.5 }, false},
		{"loss negative", func(c *Config) { c.Loss = -0.1 }, false},
		{"loss exactly one", func(c *Config) { c.Loss = 1 }, true},
		{"corruption above one", func(c *Config) { c.Corruption = 2 }, false},
		{"inverted delay range", func(c *Config) { c.DelayMin = time.Second; c.DelayMax = 0 }, false},
		{"equal delay bounds", func(c *Config) { c.DelayMin = time.Second; c.DelayMax = time.Second }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, false},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, false},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
