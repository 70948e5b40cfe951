package config

import "fmt"

// CoreLimits enforces system-wide resource constraints on a pipeline run.
type CoreLimits struct {
	MaxTotalMemoryMB      int `yaml:"max_total_memory_mb" json:"max_total_memory_mb"`           // soft RAM budget
	MaxConcurrentShards   int `yaml:"max_concurrent_shards" json:"max_concurrent_shards"`       // max files in flight (driver concurrency)
	MaxConcurrentAPICalls int `yaml:"max_concurrent_api_calls" json:"max_concurrent_api_calls"` // reserved, unused by the core engine
	MaxSessionDurationMin int `yaml:"max_session_duration_min" json:"max_session_duration_min"` // overall run timeout
	MaxFactsInKernel      int `yaml:"max_facts_in_kernel" json:"max_facts_in_kernel"`           // reserved, unused by the core engine
	MaxDerivedFactsLimit  int `yaml:"max_derived_facts_limit" json:"max_derived_facts_limit"`   // reserved, unused by the core engine
}

// ValidateCoreLimits checks that core limits are within acceptable ranges.
func (c *Config) ValidateCoreLimits() error {
	if c.CoreLimits.MaxTotalMemoryMB < 0 {
		return fmt.Errorf("max_total_memory_mb must be >= 0")
	}
	if c.CoreLimits.MaxConcurrentShards < 1 {
		return fmt.Errorf("max_concurrent_shards must be >= 1")
	}
	if c.CoreLimits.MaxSessionDurationMin < 0 {
		return fmt.Errorf("max_session_duration_min must be >= 0")
	}
	return nil
}

// EnforceCoreLimits returns enforcement parameters for the pipeline driver.
func (c *Config) EnforceCoreLimits() map[string]int {
	return map[string]int{
		"max_shards":       c.CoreLimits.MaxConcurrentShards,
		"max_memory_mb":    c.CoreLimits.MaxTotalMemoryMB,
		"session_duration": c.CoreLimits.MaxSessionDurationMin,
	}
}
