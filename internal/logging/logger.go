// Package logging provides config-driven categorized file-based logging for neurolint.
// Logs are written to .neurolint/logs/ with separate files per category.
// Logging is controlled by debug_mode in .neurolint/config.json - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot         Category = "boot"         // Process startup, config load
	CategoryConfig       Category = "config"       // Configuration parsing
	CategoryParser       Category = "parser"       // Source parsing/printing
	CategoryValidator    Category = "validator"    // Validator passes
	CategoryDiff         Category = "diff"         // AST diff engine
	CategoryRules        Category = "rules"        // Rule store
	CategoryTransLog     Category = "translog"     // Transformation log
	CategoryBackup       Category = "backup"       // Backup manager
	CategoryLayers       Category = "layers"       // Layer registry / individual layers
	CategoryOrchestrator Category = "orchestrator" // Per-file 5-stage orchestrator
	CategoryDriver       Category = "driver"       // Pipeline driver
	CategoryAdaptive     Category = "adaptive"     // Adaptive layer (7)
	CategoryScanner      Category = "scanner"      // Signature scanner (8)
	CategoryCLI          Category = "cli"          // Command-line front end
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports.
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// configFile structure for reading .neurolint/config.json
type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry represents a JSON log entry.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	projectRoot  string
	cfg          loggingConfig
	configMu     sync.RWMutex
	logLevel     int
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the project root path.
func Initialize(root string) error {
	if root == "" {
		return fmt.Errorf("project root required")
	}

	projectRoot = root
	logsDir = filepath.Join(projectRoot, ".neurolint", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		cfg.DebugMode = false
	}

	if !cfg.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== neurolint logging initialized ===")
	boot.Info("project root: %s", projectRoot)
	boot.Info("log level: %s", cfg.Level)

	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(projectRoot, ".neurolint", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.DebugMode = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg = cf.Logging

	switch cfg.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// ReloadConfig reloads the config from disk.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a log entry with custom fields.
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if cfg.JSONFormat {
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// Convenience functions - no-ops when the category is disabled.
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Parser(format string, args ...interface{})      { Get(CategoryParser).Info(format, args...) }
func ParserDebug(format string, args ...interface{}) { Get(CategoryParser).Debug(format, args...) }
func ParserError(format string, args ...interface{}) { Get(CategoryParser).Error(format, args...) }

func Validator(format string, args ...interface{})      { Get(CategoryValidator).Info(format, args...) }
func ValidatorDebug(format string, args ...interface{}) { Get(CategoryValidator).Debug(format, args...) }

func DiffDebug(format string, args ...interface{}) { Get(CategoryDiff).Debug(format, args...) }

func Rules(format string, args ...interface{})      { Get(CategoryRules).Info(format, args...) }
func RulesDebug(format string, args ...interface{}) { Get(CategoryRules).Debug(format, args...) }
func RulesError(format string, args ...interface{}) { Get(CategoryRules).Error(format, args...) }

func TransLog(format string, args ...interface{})      { Get(CategoryTransLog).Info(format, args...) }
func TransLogDebug(format string, args ...interface{}) { Get(CategoryTransLog).Debug(format, args...) }
func TransLogError(format string, args ...interface{}) { Get(CategoryTransLog).Error(format, args...) }

func Backup(format string, args ...interface{})      { Get(CategoryBackup).Info(format, args...) }
func BackupDebug(format string, args ...interface{}) { Get(CategoryBackup).Debug(format, args...) }
func BackupError(format string, args ...interface{}) { Get(CategoryBackup).Error(format, args...) }

func Layers(format string, args ...interface{})      { Get(CategoryLayers).Info(format, args...) }
func LayersDebug(format string, args ...interface{}) { Get(CategoryLayers).Debug(format, args...) }

func Orchestrator(format string, args ...interface{}) { Get(CategoryOrchestrator).Info(format, args...) }
func OrchestratorDebug(format string, args ...interface{}) {
	Get(CategoryOrchestrator).Debug(format, args...)
}

func Driver(format string, args ...interface{})      { Get(CategoryDriver).Info(format, args...) }
func DriverDebug(format string, args ...interface{}) { Get(CategoryDriver).Debug(format, args...) }
func DriverError(format string, args ...interface{}) { Get(CategoryDriver).Error(format, args...) }

func Adaptive(format string, args ...interface{})      { Get(CategoryAdaptive).Info(format, args...) }
func AdaptiveDebug(format string, args ...interface{}) { Get(CategoryAdaptive).Debug(format, args...) }

func Scanner(format string, args ...interface{})      { Get(CategoryScanner).Info(format, args...) }
func ScannerDebug(format string, args ...interface{}) { Get(CategoryScanner).Debug(format, args...) }

func CLI(format string, args ...interface{})      { Get(CategoryCLI).Info(format, args...) }
func CLIDebug(format string, args ...interface{}) { Get(CategoryCLI).Debug(format, args...) }
func CLIError(format string, args ...interface{}) { Get(CategoryCLI).Error(format, args...) }

// =============================================================================
// Timing helpers - for measuring stage/layer durations.
// =============================================================================

// Timer measures the duration of an operation.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold, debug otherwise.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
