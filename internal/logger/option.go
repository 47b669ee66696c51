package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log line encoding.
type Format string

// Supported formats.
const (
	// FormatConsole writes human-readable lines, the default.
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line for log shippers.
	FormatJSON Format = "json"
)

// ParseFormat converts a format name; empty input means FormatConsole.
func ParseFormat(s string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(s))); format {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}

// Option customizes a logger built by New.
type Option func(*options)

type options struct {
	format     Format
	output     zapcore.WriteSyncer
	zapOptions []zap.Option
}

// WithFormat selects the encoding.
func WithFormat(format Format) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithOutput redirects log lines, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = zapcore.AddSync(w)
	}
}

// WithZapOptions passes options such as zap.AddCaller through to zap.New.
func WithZapOptions(zapOptions ...zap.Option) Option {
	return func(o *options) {
		o.zapOptions = append(o.zapOptions, zapOptions...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		format: FormatConsole,
		output: zapcore.AddSync(os.Stdout),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

//nolint:ireturn // zapcore.NewCore takes the interface.
func (o *options) encoder() zapcore.Encoder {
	if o.format == FormatJSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "time"
		cfg.MessageKey = "message"
		cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

		return zapcore.NewJSONEncoder(cfg)
	}

	//nolint:exhaustruct // I'm okay with default encoder configuration values.
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "message",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: ", ",
	})
}
