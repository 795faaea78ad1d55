package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names a cognitive event recorded in the audit trail.
type AuditEventType string

const (
	AuditBroadcast       AuditEventType = "broadcast"        // workspace winner
	AuditAwarenessChange AuditEventType = "awareness_change" // attention level switch
	AuditDesireActivated AuditEventType = "desire_activated"
	AuditProviderCall    AuditEventType = "provider_call"
	AuditProviderFailed  AuditEventType = "provider_failed"
	AuditToolExec        AuditEventType = "tool_exec"
	AuditSkillLoaded     AuditEventType = "skill_loaded"
	AuditSkillRejected   AuditEventType = "skill_rejected"
	AuditSkillRemoved    AuditEventType = "skill_removed"
	AuditErrorRecovery   AuditEventType = "error_recovery"
)

// AuditEvent is one JSON line in the audit trail.
type AuditEvent struct {
	EventType  AuditEventType
	Source     string // component that produced the event
	Target     string // provider, tool, state or skill involved
	Success    bool
	DurationMs int64
	Error      string
	Message    string
	Fields     map[string]interface{}
}

var (
	auditMu     sync.Mutex
	auditFile   *os.File
	auditLogger *zap.Logger
)

// InitAudit opens the dated audit file in the logs directory. It is a no-op
// when logging is disabled.
func InitAudit() error {
	mu.RLock()
	enabled, dir := opts.Enabled, logsDir
	mu.RUnlock()
	if !enabled || dir == "" {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger != nil {
		return nil
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_audit.jsonl", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)
	auditFile = f
	auditLogger = zap.New(core)
	return nil
}

// CloseAudit flushes and closes the audit file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger != nil {
		_ = auditLogger.Sync()
		auditLogger = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit records an event. Safe to call before InitAudit (dropped).
func Audit(e AuditEvent) {
	auditMu.Lock()
	l := auditLogger
	auditMu.Unlock()
	if l == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.String("source", e.Source),
		zap.String("target", e.Target),
		zap.Bool("success", e.Success),
	}
	if e.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", e.DurationMs))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if len(e.Fields) > 0 {
		fields = append(fields, zap.Any("fields", e.Fields))
	}
	l.Info(e.Message, fields...)
}
