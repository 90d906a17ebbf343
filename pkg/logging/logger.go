// Package logging is a thin structured-logging façade over go.uber.org/zap,
// giving every execpool component the same Logger/FieldLogger/Config
// surface regardless of which zap core backs it.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors zapcore.Level under names this package's callers
// already use.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel parses a string into a LogLevel.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// LogFormat selects zap's console or JSON encoder.
type LogFormat int

const (
	TextFormat LogFormat = iota
	JSONFormat
)

// Config configures a Logger's underlying zap core.
type Config struct {
	Level      LogLevel
	Format     LogFormat
	Output     io.Writer
	ShowCaller bool
	Component  string
}

func DefaultConfig() *Config {
	return &Config{
		Level:  InfoLevel,
		Format: TextFormat,
		Output: os.Stdout,
	}
}

// Logger wraps a *zap.Logger, adding the Component/WithField surface the
// rest of this module's packages call into.
type Logger struct {
	z         *zap.Logger
	level     *zap.AtomicLevel
	component string
}

func encoderFor(format LogFormat) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == JSONFormat {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// NewLogger builds a Logger whose zap core writes config.Output at
// config.Level, optionally annotating every entry with a caller location.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	atomicLevel := zap.NewAtomicLevelAt(config.Level.zapLevel())
	core := zapcore.NewCore(encoderFor(config.Format), zapcore.AddSync(config.Output), atomicLevel)

	opts := []zap.Option{}
	if config.ShowCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	z := zap.New(core, opts...)
	if config.Component != "" {
		z = z.With(zap.String("component", config.Component))
	}

	return &Logger{z: z, level: &atomicLevel, component: config.Component}
}

// WithComponent returns a new Logger sharing this one's core but tagging
// every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{z: l.z.With(zap.String("component", component)), level: l.level, component: component}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) IsEnabled(level LogLevel) bool {
	return l.level.Enabled(level.zapLevel())
}

// Zap exposes the underlying *zap.Logger for callers that want zap's
// native field types directly (e.g. execpool's Options.Logger).
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (l *Logger) Debug(message string, fields ...map[string]interface{}) {
	l.log(zapcore.DebugLevel, message, fields)
}

func (l *Logger) Info(message string, fields ...map[string]interface{}) {
	l.log(zapcore.InfoLevel, message, fields)
}

func (l *Logger) Warn(message string, fields ...map[string]interface{}) {
	l.log(zapcore.WarnLevel, message, fields)
}

func (l *Logger) Error(message string, fields ...map[string]interface{}) {
	l.log(zapcore.ErrorLevel, message, fields)
}

func (l *Logger) log(lvl zapcore.Level, message string, fields []map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	if ce := l.z.Check(lvl, message); ce != nil {
		ce.Write(toZapFields(f)...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(zapcore.DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(zapcore.InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(zapcore.WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// WithField and WithFields return a FieldLogger carrying extra structured
// context attached to every subsequent entry.
func (l *Logger) WithField(key string, value interface{}) *FieldLogger {
	return &FieldLogger{logger: l, fields: map[string]interface{}{key: value}}
}

func (l *Logger) WithFields(fields map[string]interface{}) *FieldLogger {
	f := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &FieldLogger{logger: l, fields: f}
}

// FieldLogger is a Logger pinned to a fixed set of structured fields.
type FieldLogger struct {
	logger *Logger
	fields map[string]interface{}
}

func (fl *FieldLogger) Debug(message string) { fl.logger.log(zapcore.DebugLevel, message, []map[string]interface{}{fl.fields}) }
func (fl *FieldLogger) Info(message string)  { fl.logger.log(zapcore.InfoLevel, message, []map[string]interface{}{fl.fields}) }
func (fl *FieldLogger) Warn(message string)  { fl.logger.log(zapcore.WarnLevel, message, []map[string]interface{}{fl.fields}) }
func (fl *FieldLogger) Error(message string) { fl.logger.log(zapcore.ErrorLevel, message, []map[string]interface{}{fl.fields}) }

func (fl *FieldLogger) Debugf(format string, args ...interface{}) {
	fl.logger.log(zapcore.DebugLevel, fmt.Sprintf(format, args...), []map[string]interface{}{fl.fields})
}

func (fl *FieldLogger) Infof(format string, args ...interface{}) {
	fl.logger.log(zapcore.InfoLevel, fmt.Sprintf(format, args...), []map[string]interface{}{fl.fields})
}

func (fl *FieldLogger) Warnf(format string, args ...interface{}) {
	fl.logger.log(zapcore.WarnLevel, fmt.Sprintf(format, args...), []map[string]interface{}{fl.fields})
}

func (fl *FieldLogger) Errorf(format string, args ...interface{}) {
	fl.logger.log(zapcore.ErrorLevel, fmt.Sprintf(format, args...), []map[string]interface{}{fl.fields})
}

func (fl *FieldLogger) WithField(key string, value interface{}) *FieldLogger {
	fields := make(map[string]interface{}, len(fl.fields)+1)
	for k, v := range fl.fields {
		fields[k] = v
	}
	fields[key] = value
	return &FieldLogger{logger: fl.logger, fields: fields}
}

var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func InitGlobalLogger(config *Config) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = NewLogger(config)
}

func GetGlobalLogger() *Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(DefaultConfig())
	}
	return defaultLogger
}

func Debug(message string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(message, fields...) }
func Info(message string, fields ...map[string]interface{})  { GetGlobalLogger().Info(message, fields...) }
func Warn(message string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(message, fields...) }
func Error(message string, fields ...map[string]interface{}) { GetGlobalLogger().Error(message, fields...) }

func Debugf(format string, args ...interface{}) { GetGlobalLogger().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetGlobalLogger().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetGlobalLogger().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetGlobalLogger().Errorf(format, args...) }

// CreateFileOutput opens filename for appending, creating its directory
// tree first.
func CreateFileOutput(filename string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// CreateCombinedOutput writes every entry to both stdout and filename.
func CreateCombinedOutput(filename string) (io.Writer, error) {
	fileWriter, err := CreateFileOutput(filename)
	if err != nil {
		return nil, err
	}
	return io.MultiWriter(os.Stdout, fileWriter), nil
}
