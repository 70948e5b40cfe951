package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func BenchmarkAuditLog(b *testing.B) {
	tempDir, err := os.MkdirTemp("", "logging_bench")
	if err != nil {
		b.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".neurolint")
	os.MkdirAll(configDir, 0755)
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(`{"logging": {"debug_mode": true}}`), 0644)

	resetLoggingState()
	Initialize(tempDir)
	InitAudit()
	defer CloseAudit()

	logger := AuditWithSession("bench-session")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.LayerResult("src/App.tsx", 3, true, 2, "")
	}
}
