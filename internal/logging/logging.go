package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a zap logger. "console" selects the development encoder, anything
// else the production JSON encoder. Unknown levels fall back to info. When out
// is nil the logger writes to stderr.
func New(level, format string, out io.Writer) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(format, FormatConsole) {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	if out == nil {
		return zapCfg.Build()
	}

	var enc zapcore.Encoder
	if zapCfg.Encoding == "console" {
		enc = zapcore.NewConsoleEncoder(zapCfg.EncoderConfig)
	} else {
		enc = zapcore.NewJSONEncoder(zapCfg.EncoderConfig)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapCfg.Level)
	return zap.New(core), nil
}

// ParseLevel maps debug, warn and error to their zap levels and everything
// else to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
