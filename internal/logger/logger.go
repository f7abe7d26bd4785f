// Package logger adapts zap to runtime.Logger, so the standalone server logs
// through the same interface as the Nakama module.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a runtime.Logger backed by a *zap.Logger.
type Logger struct {
	zl     *zap.Logger
	fields map[string]interface{}
}

// New returns a JSON logger writing to w at debug level and above.
func New(w io.Writer, opts ...zap.Option) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), zapcore.DebugLevel)
	return Wrap(zap.New(core, opts...))
}

// Wrap adapts an existing zap logger.
func Wrap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

// Default returns a logger writing to stdout.
func Default() *Logger {
	return New(os.Stdout)
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.zl.Core().Enabled(zapcore.DebugLevel) {
		l.zl.Debug(fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l.zl.Core().Enabled(zapcore.InfoLevel) {
		l.zl.Info(fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l.zl.Core().Enabled(zapcore.WarnLevel) {
		l.zl.Warn(fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l.zl.Core().Enabled(zapcore.ErrorLevel) {
		l.zl.Error(fmt.Sprintf(format, v...))
	}
}

// Fatal logs at FATAL level and exits.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.zl.Fatal(fmt.Sprintf(format, v...))
}

func (l *Logger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		merged[k] = v
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{zl: l.zl.With(zapFields...), fields: merged}
}

func (l *Logger) Fields() map[string]interface{} {
	return l.fields
}

var _ runtime.Logger = (*Logger)(nil)
