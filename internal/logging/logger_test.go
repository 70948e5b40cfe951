package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetLoggingState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	projectRoot = ""
	cfg = loggingConfig{}
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".neurolint")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true, "config": true, "parser": true, "validator": true,
				"diff": true, "rules": true, "translog": true, "backup": true,
				"layers": true, "orchestrator": true, "driver": true,
				"adaptive": true, "scanner": true, "cli": true
			}
		}
	}`
	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot, CategoryConfig, CategoryParser, CategoryValidator, CategoryDiff,
		CategoryRules, CategoryTransLog, CategoryBackup, CategoryLayers,
		CategoryOrchestrator, CategoryDriver, CategoryAdaptive, CategoryScanner, CategoryCLI,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("info message for %s", cat)
		logger.Debug("debug message for %s", cat)
		logger.Warn("warn message for %s", cat)
		logger.Error("error message for %s", cat)
	}

	Boot("boot convenience log")
	Parser("parser convenience log")
	Validator("validator convenience log")
	Rules("rules convenience log")
	TransLog("translog convenience log")
	Backup("backup convenience log")
	Layers("layers convenience log")
	Orchestrator("orchestrator convenience log")
	Driver("driver convenience log")
	Adaptive("adaptive convenience log")
	Scanner("scanner convenience log")
	CLI("cli convenience log")

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".neurolint", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil {
					t.Errorf("failed to read log file for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("no log file found for category: %s", cat)
		}
	}
}

func TestDebugModeDisabled(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_disabled")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".neurolint")
	os.MkdirAll(configDir, 0755)
	configContent := `{"logging": {"level": "debug", "debug_mode": false, "categories": {"boot": true}}}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644)

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("failed to initialize logging: %v", err)
	}

	if IsDebugMode() {
		t.Error("expected debug mode to be disabled (production mode)")
	}
	if IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be disabled when debug_mode=false")
	}

	Boot("should not be logged")
	logger := Get(CategoryBoot)
	logger.Info("should not be logged")

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".neurolint", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("expected no log files in production mode, found %d", len(entries))
		}
	}
}

func TestCategoryToggle(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_category")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".neurolint")
	os.MkdirAll(configDir, 0755)
	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {"boot": true, "driver": true, "scanner": false, "adaptive": false}
		}
	}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644)

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be enabled")
	}
	if !IsCategoryEnabled(CategoryDriver) {
		t.Error("driver should be enabled")
	}
	if IsCategoryEnabled(CategoryScanner) {
		t.Error("scanner should be disabled")
	}
	if IsCategoryEnabled(CategoryAdaptive) {
		t.Error("adaptive should be disabled")
	}
	if !IsCategoryEnabled(CategoryRules) {
		t.Error("rules (not in config) should default to enabled")
	}

	Boot("should be logged")
	Driver("should be logged")
	Scanner("should not be logged")
	Rules("should be logged (default enabled)")

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".neurolint", "logs")
	entries, _ := os.ReadDir(logsPath)

	var hasBoot, hasDriver, hasScanner bool
	for _, e := range entries {
		switch {
		case strings.Contains(e.Name(), "boot"):
			hasBoot = true
		case strings.Contains(e.Name(), "driver"):
			hasDriver = true
		case strings.Contains(e.Name(), "scanner"):
			hasScanner = true
		}
	}
	if !hasBoot {
		t.Error("expected boot log file")
	}
	if !hasDriver {
		t.Error("expected driver log file")
	}
	if hasScanner {
		t.Error("should not have scanner log file (disabled)")
	}
}

func TestTimerLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_timer")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".neurolint")
	os.MkdirAll(configDir, 0755)
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(`{"logging": {"level": "debug", "debug_mode": true}}`), 0644)

	resetLoggingState()
	Initialize(tempDir)

	timer := StartTimer(CategoryDriver, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()
	if elapsed <= 0 {
		t.Error("timer should have recorded non-zero duration")
	}

	CloseAll()
	CloseAudit()
}
