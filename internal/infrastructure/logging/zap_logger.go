package logging

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cfpicker.dev/cli/internal/application/ports"
)

// ZapLogger implements the LoggingGateway interface on top of zap
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	mutex  sync.RWMutex
}

// NewZapLogger builds a logger from the logging configuration
func NewZapLogger(config *ports.LoggingConfig) (*ZapLogger, error) {
	l := &ZapLogger{level: zap.NewAtomicLevel()}
	if err := l.ConfigureLogging(config); err != nil {
		return nil, err
	}
	return l, nil
}

// NewZapLoggerWithCore wraps an existing core, used to capture output in tests
func NewZapLoggerWithCore(core zapcore.Core, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{
		logger: zap.New(core),
		level:  level,
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *ZapLogger {
	return &ZapLogger{
		logger: zap.NewNop(),
		level:  zap.NewAtomicLevelAt(zapcore.ErrorLevel),
	}
}

// Log logs a message with the specified level
func (l *ZapLogger) Log(level ports.LogLevel, message string, fields map[string]interface{}) {
	zapLevel, err := toZapLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	// fatal entries are recorded without exiting
	if zapLevel > zapcore.ErrorLevel {
		zapLevel = zapcore.ErrorLevel
		fields = withField(fields, "severity", string(ports.LogLevelFatal))
	}

	if ce := l.zap().Check(zapLevel, message); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

// LogError logs an error
func (l *ZapLogger) LogError(err error, message string, fields map[string]interface{}) {
	l.zap().Error(message, append(toZapFields(fields), zap.Error(err))...)
}

// SetLogLevel sets the logging level
func (l *ZapLogger) SetLogLevel(level ports.LogLevel) {
	if zapLevel, err := toZapLevel(level); err == nil {
		l.level.SetLevel(zapLevel)
	}
}

// GetLogLevel returns the current logging level
func (l *ZapLogger) GetLogLevel() ports.LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return ports.LogLevelDebug
	case zapcore.InfoLevel:
		return ports.LogLevelInfo
	case zapcore.WarnLevel:
		return ports.LogLevelWarn
	case zapcore.ErrorLevel:
		return ports.LogLevelError
	default:
		return ports.LogLevelFatal
	}
}

// ConfigureLogging rebuilds the underlying logger
func (l *ZapLogger) ConfigureLogging(config *ports.LoggingConfig) error {
	if config == nil {
		return fmt.Errorf("logging config cannot be nil")
	}

	level := config.Level
	if level == "" {
		level = ports.LogLevelInfo
	}
	zapLevel, err := toZapLevel(level)
	if err != nil {
		return err
	}

	var zc zap.Config
	switch config.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return fmt.Errorf("unsupported log format: %s", config.Format)
	}

	output := config.Output
	if output == "" {
		output = "stderr"
	}
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.Level = l.level
	l.level.SetLevel(zapLevel)

	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	l.mutex.Lock()
	l.logger = logger
	l.mutex.Unlock()
	return nil
}

// Sync flushes buffered log entries
func (l *ZapLogger) Sync() error {
	return l.zap().Sync()
}

func (l *ZapLogger) zap() *zap.Logger {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.logger
}

func toZapLevel(level ports.LogLevel) (zapcore.Level, error) {
	zapLevel, err := zapcore.ParseLevel(string(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
	return zapLevel, nil
}

// toZapFields converts fields in key order so output is stable
func toZapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

func withField(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
