package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap with DupeFoundry's structured-field conventions.
type Logger struct {
	zap         *zap.Logger
	config      *LoggerConfig
	atomicLevel zap.AtomicLevel
}

// New creates a new logger from configuration. It always writes JSON to
// stderr, and additionally tees to a rotating file sink when config.File is
// set.
func New(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	level := ParseSeverity(config.DefaultLevel).ToZapLevel()
	atomicLevel := zap.NewAtomicLevelAt(level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    severityEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(os.Stderr), atomicLevel),
	}

	if config.File != nil {
		lumber := &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSizeMB,
			MaxAge:     config.File.MaxAgeDays,
			MaxBackups: config.File.MaxBackups,
			Compress:   config.File.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(lumber), atomicLevel))
	}

	core := zapcore.NewTee(cores...)

	opts := []zap.Option{zap.AddCaller()}
	if config.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	fields := make([]zap.Field, 0, len(config.StaticFields)+2)
	for k, v := range config.StaticFields {
		fields = append(fields, zap.Any(k, v))
	}
	fields = append(fields, zap.String("service", config.Service))
	if config.Environment != "" {
		fields = append(fields, zap.String("environment", config.Environment))
	}
	opts = append(opts, zap.Fields(fields...))

	zapLogger := zap.New(core, opts...)

	return &Logger{zap: zapLogger, config: config, atomicLevel: atomicLevel}, nil
}

// NewCLI creates a logger configured for CLI use: INFO level, stderr only.
func NewCLI(serviceName string) (*Logger, error) {
	return New(DefaultConfig(serviceName))
}

// severityEncoder encodes zap levels as DupeFoundry severity strings.
func severityEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var severity string
	switch l {
	case zapcore.DebugLevel:
		severity = "DEBUG"
	case zapcore.InfoLevel:
		severity = "INFO"
	case zapcore.WarnLevel:
		severity = "WARN"
	case zapcore.ErrorLevel:
		severity = "ERROR"
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		severity = "FATAL"
	default:
		severity = "INFO"
	}
	enc.AppendString(severity)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs at ERROR level.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// WithComponent returns a logger tagged with a component field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("component", component)), config: l.config, atomicLevel: l.atomicLevel}
}

// WithError returns a logger with error information attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zap: l.zap.With(zap.Error(err)), config: l.config, atomicLevel: l.atomicLevel}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

// SetLevel dynamically changes the log level.
func (l *Logger) SetLevel(severity Severity) { l.atomicLevel.SetLevel(severity.ToZapLevel()) }
