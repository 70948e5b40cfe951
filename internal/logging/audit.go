// Package logging provides audit logging for run-level events.
// Audit logs are newline-delimited JSON events, independent of the
// category log files, intended for post-hoc analysis of a pipeline run
// (which files were touched, which layers fired, what the scanner found).
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType identifies the kind of audit event.
type AuditEventType string

const (
	AuditRunStart    AuditEventType = "run_start"
	AuditRunEnd      AuditEventType = "run_end"
	AuditFileStart   AuditEventType = "file_start"
	AuditFileDone    AuditEventType = "file_done"
	AuditFileFailed  AuditEventType = "file_failed"
	AuditLayerAccept AuditEventType = "layer_accept"
	AuditLayerReject AuditEventType = "layer_reject"
	AuditLayerNoop   AuditEventType = "layer_noop"
	AuditBackupMade  AuditEventType = "backup_created"
	AuditRestoreDone AuditEventType = "restore_done"
	AuditRuleApplied AuditEventType = "rule_applied"
	AuditRuleLearned AuditEventType = "rule_learned"
	AuditFinding     AuditEventType = "finding"
)

// AuditEvent is a single structured audit record.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	SessionID  string                 `json:"session"`
	File       string                 `json:"file,omitempty"`
	LayerID    int                    `json:"layer_id,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log for the current day. No-op if debug mode
// is disabled or the log is already open.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger is a session-scoped audit event emitter.
type AuditLogger struct {
	sessionID string
}

// AuditWithSession creates an audit logger scoped to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes an audit event as a JSON line. A no-op when the audit log
// is not open (debug mode disabled).
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	auditFile.Write(data)
	auditFile.WriteString("\n")
}

// RunStart logs the start of a pipeline run.
func (a *AuditLogger) RunStart(fileCount, layerCount int) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		Success:   true,
		Message:   fmt.Sprintf("run started: %d files, %d layers", fileCount, layerCount),
		Fields:    map[string]interface{}{"files": fileCount, "layers": layerCount},
	})
}

// RunEnd logs the end of a pipeline run.
func (a *AuditLogger) RunEnd(durationMs int64, failed int) {
	a.Log(AuditEvent{
		EventType:  AuditRunEnd,
		Success:    failed == 0,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("run finished in %dms, %d file(s) failed", durationMs, failed),
	})
}

// LayerResult logs the outcome of one (file, layer) orchestrator run.
func (a *AuditLogger) LayerResult(file string, layerID int, success bool, changeCount int, errMsg string) {
	eventType := AuditLayerAccept
	if !success {
		eventType = AuditLayerReject
	} else if changeCount == 0 {
		eventType = AuditLayerNoop
	}
	a.Log(AuditEvent{
		EventType: eventType,
		File:      file,
		LayerID:   layerID,
		Success:   success,
		Error:     errMsg,
		Fields:    map[string]interface{}{"change_count": changeCount},
	})
}

// BackupCreated logs a backup creation.
func (a *AuditLogger) BackupCreated(backupID string, fileCount int) {
	a.Log(AuditEvent{
		EventType: AuditBackupMade,
		Success:   true,
		Message:   backupID,
		Fields:    map[string]interface{}{"file_count": fileCount},
	})
}

// RuleApplied logs a rule application during the adaptive layer.
func (a *AuditLogger) RuleApplied(file string, ruleID string, count int) {
	a.Log(AuditEvent{
		EventType: AuditRuleApplied,
		File:      file,
		LayerID:   7,
		Success:   true,
		Fields:    map[string]interface{}{"rule_id": ruleID, "count": count},
	})
}

// Finding logs a scanner finding.
func (a *AuditLogger) Finding(file string, signatureID string, severity string) {
	a.Log(AuditEvent{
		EventType: AuditFinding,
		File:      file,
		LayerID:   8,
		Success:   true,
		Fields:    map[string]interface{}{"signature_id": signatureID, "severity": severity},
	})
}
