package logger

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ellipsis = "..."

// New returns the discovery run logger writing to stdout and, when logFile is
// set, to that file too. Durations are printed as "5s" so poll intervals read naturally.
func New(json bool, debug bool, logFile string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if json {
		encoding = "json"
	}

	outputs := []string{"stdout"}
	if path := strings.TrimSpace(logFile); path != "" {
		outputs = append(outputs, path)
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}

	return cfg.Build()
}

// TruncateForLog keeps at most limit runes of a vendor body.
func TruncateForLog(body string, limit int) string {
	if limit <= 0 {
		return ""
	}

	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= limit {
		return body
	}

	cut := 0
	for i := range body {
		if cut == limit {
			return body[:i] + ellipsis
		}
		cut++
	}
	return body
}
