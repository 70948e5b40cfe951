package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"neurolint/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds all neurolint configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Project root the engine operates on.
	ProjectRoot string `yaml:"project_root" json:"project_root"`

	// Which layers run, and in what order, for `fix`/`analyze`.
	Layers LayersConfig `yaml:"layers" json:"layers"`

	// Validator settings.
	Validator ValidatorConfig `yaml:"validator" json:"validator"`

	// Backup manager settings.
	Backup BackupConfig `yaml:"backup" json:"backup"`

	// Adaptive rule store settings.
	Rules RulesConfig `yaml:"rules" json:"rules"`

	// Transformation logger settings.
	TransLog TransLogConfig `yaml:"translog" json:"translog"`

	// Signature scanner settings.
	Scanner ScannerConfig `yaml:"scanner" json:"scanner"`

	// Execution / resource limits.
	Execution ExecutionConfig `yaml:"execution"`

	// Core resource limits (enforced system-wide).
	CoreLimits CoreLimits `yaml:"core_limits" json:"core_limits"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// LayersConfig selects and orders which layers a run applies.
type LayersConfig struct {
	Enabled []int `yaml:"enabled" json:"enabled"` // layer IDs 1-8, in execution order
}

// ValidatorConfig tunes the two-pass structural validator.
type ValidatorConfig struct {
	MinSizeRatio   float64 `yaml:"min_size_ratio" json:"min_size_ratio"`     // reject if output < this * input, unless tiny
	TinyFileBytes  int     `yaml:"tiny_file_bytes" json:"tiny_file_bytes"`   // below this, size-ratio check is skipped
	MaxFileSizeMB  int     `yaml:"max_file_size_mb" json:"max_file_size_mb"` // files above this are skipped with a diagnostic
}

// BackupConfig controls the content-addressed backup store.
type BackupConfig struct {
	Dir              string `yaml:"dir" json:"dir"`
	Encrypt          bool   `yaml:"encrypt" json:"encrypt"`
	KeyRotationDays  int    `yaml:"key_rotation_days" json:"key_rotation_days"`
	RetainSessions   int    `yaml:"retain_sessions" json:"retain_sessions"`
	PBKDF2Iterations int    `yaml:"pbkdf2_iterations" json:"pbkdf2_iterations"`
}

// RulesConfig tunes the adaptive rule store. Confidence and decay
// tuning lives here as configuration, never as hard-coded constants
// at call sites.
type RulesConfig struct {
	StorePath             string  `yaml:"store_path" json:"store_path"`
	MinConfidence         float64 `yaml:"min_confidence" json:"min_confidence"`
	SeedConfidenceLearned float64 `yaml:"seed_confidence_learned" json:"seed_confidence_learned"`
	SeedConfidenceSecure  float64 `yaml:"seed_confidence_security" json:"seed_confidence_security"`
	SeedConfidenceGeneric float64 `yaml:"seed_confidence_generic" json:"seed_confidence_generic"`
	ReinforceDelta        float64 `yaml:"reinforce_delta" json:"reinforce_delta"`
	DecayDelta            float64 `yaml:"decay_delta" json:"decay_delta"`
}

// TransLogConfig tunes the append-only transformation log.
type TransLogConfig struct {
	Path        string `yaml:"path" json:"path"`
	MaxBytes    int64  `yaml:"max_bytes" json:"max_bytes"`
	MaxAgeDays  int    `yaml:"max_age_days" json:"max_age_days"`
}

// ScannerConfig tunes the IoC signature scanner (layer 8).
type ScannerConfig struct {
	SignaturesDir  string `yaml:"signatures_dir" json:"signatures_dir"`
	MaxInputBytes  int    `yaml:"max_input_bytes" json:"max_input_bytes"`
	ChunkBytes     int    `yaml:"chunk_bytes" json:"chunk_bytes"`
	ChunkOverlap   int    `yaml:"chunk_overlap" json:"chunk_overlap"`
	BaselinePath   string `yaml:"baseline_path" json:"baseline_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:        "neurolint",
		Version:     "0.1.0",
		ProjectRoot: ".",

		Layers: LayersConfig{
			Enabled: []int{1, 2, 3, 4, 5, 6, 7, 8},
		},

		Validator: ValidatorConfig{
			MinSizeRatio:  0.25,
			TinyFileBytes: 64,
			MaxFileSizeMB: 10,
		},

		Backup: BackupConfig{
			Dir:              ".neurolint/backups",
			Encrypt:          false,
			KeyRotationDays:  90,
			RetainSessions:   20,
			PBKDF2Iterations: 100000,
		},

		Rules: RulesConfig{
			StorePath:             ".neurolint/learned-rules.json",
			MinConfidence:         0.70,
			SeedConfidenceLearned: 0.90,
			SeedConfidenceSecure:  0.95,
			SeedConfidenceGeneric: 0.65,
			ReinforceDelta:        0.05,
			DecayDelta:            0.02,
		},

		TransLog: TransLogConfig{
			Path:       ".neurolint/transformation-log.json",
			MaxBytes:   16 * 1024 * 1024,
			MaxAgeDays: 30,
		},

		Scanner: ScannerConfig{
			SignaturesDir: ".neurolint/signatures",
			MaxInputBytes: 5 * 1024 * 1024,
			ChunkBytes:    64 * 1024,
			ChunkOverlap:  256,
			BaselinePath:  ".neurolint/security-baseline.json",
		},

		Execution: ExecutionConfig{
			AllowedBinaries:  []string{"npm", "npx", "node", "git"},
			DefaultTimeout:   "30s",
			WorkingDirectory: ".",
			AllowedEnvVars:   []string{"PATH", "HOME"},
		},

		CoreLimits: CoreLimits{
			MaxTotalMemoryMB:      2048,
			MaxConcurrentShards:   8, // reused as max concurrent files
			MaxConcurrentAPICalls: 0,
			MaxSessionDurationMin: 60,
			MaxFactsInKernel:      0,
			MaxDerivedFactsLimit:  0,
		},

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file at path. Missing files yield
// defaults, not an error — neurolint must work unconfigured.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: project_root=%s layers=%v", cfg.ProjectRoot, cfg.Layers.Enabled)

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("NEUROLINT_PROJECT_ROOT"); root != "" {
		c.ProjectRoot = root
	}
	if dir := os.Getenv("NEUROLINT_BACKUP_DIR"); dir != "" {
		c.Backup.Dir = dir
	}
	if v := os.Getenv("NEUROLINT_MIN_CONFIDENCE"); v != "" {
		if f, err := parseFloatEnv(v); err == nil {
			c.Rules.MinConfidence = f
		}
	}
	if v := os.Getenv("NEUROLINT_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

func parseFloatEnv(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

// GetExecutionTimeout returns the default execution timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetMaxFileSize returns the maximum file size the orchestrator will
// attempt to transform, in bytes.
func (c *Config) GetMaxFileSize() int64 {
	return int64(c.Validator.MaxFileSizeMB) * 1024 * 1024
}

// GetMaxConcurrentFiles returns the driver's file-level concurrency cap.
func (c *Config) GetMaxConcurrentFiles() int {
	if c.CoreLimits.MaxConcurrentShards < 1 {
		return 1
	}
	return c.CoreLimits.MaxConcurrentShards
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Rules.MinConfidence < 0 || c.Rules.MinConfidence > 1 {
		return fmt.Errorf("%w: rules.min_confidence must be in [0,1], got %v", ErrConfig, c.Rules.MinConfidence)
	}
	if c.Validator.MinSizeRatio <= 0 || c.Validator.MinSizeRatio > 1 {
		return fmt.Errorf("%w: validator.min_size_ratio must be in (0,1], got %v", ErrConfig, c.Validator.MinSizeRatio)
	}
	for _, id := range c.Layers.Enabled {
		if id < 1 || id > 8 {
			return fmt.Errorf("%w: invalid layer id in layers.enabled: %d (must be 1-8)", ErrConfig, id)
		}
	}
	if err := c.ValidateCoreLimits(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}
