// Package logging provides categorized logging for enton.
// Each category writes to its own file under the logs directory
// (YYYY-MM-DD_<category>.log) through a zap core. Before Initialize or Attach
// is called every logger is a no-op, which keeps tests quiet.
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

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot          Category = "boot"          // Boot/initialization
	CategoryRuntime       Category = "runtime"       // Runtime loops
	CategoryWorkspace     Category = "workspace"     // Global workspace ticks and broadcasts
	CategoryPrediction    Category = "prediction"    // World model and surprise
	CategoryMetacognition Category = "metacognition" // Strategy scores, boredom, curiosity
	CategoryAwareness     Category = "awareness"     // Awareness state machine
	CategoryDesires       Category = "desires"       // Desire engine
	CategoryBrain         Category = "brain"         // Brain calls and tool loop
	CategoryProviders     Category = "providers"     // LLM/STT/TTS provider traffic
	CategorySpeech        Category = "speech"        // Ears and Voice
	CategoryErrors        Category = "errors"        // Error loop-back
	CategoryTools         Category = "tools"         // Tool execution
	CategorySkills        Category = "skills"        // Skill loading and hot reload
	CategoryStore         Category = "store"         // Episodic memory store
	CategoryLifecycle     Category = "lifecycle"     // Boot/shutdown persistence
	CategoryEvents        Category = "events"        // Event bus
	CategoryContext       Category = "context"       // Context engine
)

// Options configures Initialize. It mirrors config.LoggingConfig so this
// package does not import config.
type Options struct {
	Enabled    bool
	Level      string          // debug, info, warn, error
	JSONFormat bool            // JSON lines instead of console text
	Categories map[string]bool // nil enables every category
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	files    []*os.File
	logsDir  string
	opts     Options
	base     *zap.Logger // set by Attach; categories become named children
	minLevel = zapcore.InfoLevel
)

// Initialize sets up file logging under dir. It can be called again to
// reconfigure; previously opened files are closed.
func Initialize(dir string, o Options) error {
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}
	CloseAll()

	mu.Lock()
	logsDir = dir
	opts = o
	minLevel = parseLevel(o.Level)
	mu.Unlock()

	if !o.Enabled {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== enton logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", minLevel)
	if len(o.Categories) == 0 {
		boot.Info("All categories enabled")
	}
	return nil
}

// Attach routes every category into an existing zap logger instead of files.
// The CLI uses this so categorized logs share its console output.
func Attach(l *zap.Logger) {
	CloseAll()
	mu.Lock()
	defer mu.Unlock()
	base = l
	if !opts.Enabled {
		opts.Enabled = true
	}
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// IsCategoryEnabled reports whether a category produces output.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()

	if !opts.Enabled {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var zl *zap.Logger
	if base != nil {
		zl = base.Named(string(category))
	} else {
		core, err := fileCore(category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[logging] Warning: %v\n", err)
			return &Logger{category: category}
		}
		zl = zap.New(core).Named(string(category))
	}

	l := &Logger{category: category, sugar: zl.Sugar()}
	loggers[category] = l
	return l
}

// fileCore opens the dated category file. Caller holds mu.
func fileCore(category Category) (zapcore.Core, error) {
	if logsDir == "" {
		return nil, fmt.Errorf("logging not initialized")
	}
	name := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
	path := filepath.Join(logsDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}
	files = append(files, f)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(f), zap.NewAtomicLevelAt(minLevel)), nil
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes a message with structured fields at the given level.
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.sugar == nil {
		return
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch parseLevel(level) {
	case zapcore.DebugLevel:
		l.sugar.Debugw(msg, kv...)
	case zapcore.WarnLevel:
		l.sugar.Warnw(msg, kv...)
	case zapcore.ErrorLevel:
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// WithContext returns a logger that attaches the given fields to every entry.
func (l *Logger) WithContext(ctx map[string]interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	kv := make([]interface{}, 0, len(ctx)*2)
	for k, v := range ctx {
		kv = append(kv, k, v)
	}
	return &Logger{category: l.category, sugar: l.sugar.With(kv...)}
}

// Sync flushes buffered entries of every open logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
	}
}

// CloseAll flushes and closes all open log files (call at shutdown).
func CloseAll() {
	Sync()
	mu.Lock()
	defer mu.Unlock()
	for _, f := range files {
		f.Close()
	}
	files = nil
	loggers = make(map[Category]*Logger)
	base = nil
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
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

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
