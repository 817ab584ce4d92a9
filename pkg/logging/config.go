package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/agentstation/pkgfeed/pkg/constants"
)

// Config holds logger configuration options.
type Config struct {
	Level      string         // trace, debug, info, warn, error, disabled
	Format     string         // auto, json, console, pretty
	Output     string         // stderr, stdout, discard, or a file path (rotated)
	TimeFormat string         // kitchen, rfc3339, rfc3339nano, stamp, unix or a Go layout
	NoColor    bool           // plain console output
	AddCaller  bool           // include file:line
	Fields     map[string]any // added to every line
}

// DefaultConfig returns info-level logging to stderr, console on a
// terminal and JSON otherwise.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
		Fields:     make(map[string]any),
	}
}

// ConfigFromEnv returns DefaultConfig overridden by PKGFEED_LOG_LEVEL,
// PKGFEED_LOG_FORMAT, PKGFEED_LOG_OUTPUT, PKGFEED_LOG_TIME_FORMAT,
// PKGFEED_LOG_CALLER and PKGFEED_LOG_FIELDS (comma-separated key=value).
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	env := func(key string, dst *string) {
		if v := os.Getenv(constants.EnvPrefix + "_LOG_" + key); v != "" {
			*dst = v
		}
	}
	env("LEVEL", &cfg.Level)
	env("FORMAT", &cfg.Format)
	env("OUTPUT", &cfg.Output)
	env("TIME_FORMAT", &cfg.TimeFormat)
	cfg.AddCaller = os.Getenv(constants.EnvPrefix+"_LOG_CALLER") == "true"
	cfg.Fields = parseFields(os.Getenv(constants.EnvPrefix + "_LOG_FIELDS"))
	return cfg
}

// NewLoggerFromConfig creates a logger and sets zerolog's global level to
// the configured one.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logCtx := zerolog.New(writer(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller {
		logCtx = logCtx.Caller()
	}
	for k, v := range cfg.Fields {
		logCtx = addField(logCtx, k, v)
	}
	return logCtx.Logger()
}

// Configure replaces the package-level logger.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

// writer resolves the output and wraps it for console formats.
func writer(cfg *Config) io.Writer {
	var out io.Writer
	terminal := false
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out, terminal = os.Stdout, isTerminal(os.Stdout)
	case "", "stderr":
		out, terminal = os.Stderr, isTerminal(os.Stderr)
	case "discard", "none":
		out = io.Discard
	default:
		out = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    constants.LogRotationSize,
			MaxAge:     constants.LogRotationAge,
			MaxBackups: constants.LogRotationBackups,
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
	case "", "auto":
		if !terminal {
			return out
		}
	default:
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: parseTimeFormat(cfg.TimeFormat),
		NoColor:    cfg.NoColor,
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

func parseTimeFormat(format string) string {
	switch strings.ToLower(format) {
	case "", "kitchen":
		return time.Kitchen
	case "rfc3339":
		return time.RFC3339
	case "rfc3339nano":
		return time.RFC3339Nano
	case "stamp":
		return time.Stamp
	case "unix", "epoch":
		return zerolog.TimeFormatUnix
	}
	if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
		return format
	}
	return time.Kitchen
}

// parseFields parses comma-separated key=value pairs.
func parseFields(fields string) map[string]any {
	result := make(map[string]any)
	for _, field := range strings.Split(fields, ",") {
		key, value, ok := strings.Cut(field, "=")
		if ok && strings.TrimSpace(key) != "" {
			result[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return result
}

// addField adds a typed field; errors under "error" or "err" use the
// standard error key.
func addField(ctx zerolog.Context, key string, value any) zerolog.Context {
	switch v := value.(type) {
	case string:
		return ctx.Str(key, v)
	case int:
		return ctx.Int(key, v)
	case int64:
		return ctx.Int64(key, v)
	case float64:
		return ctx.Float64(key, v)
	case bool:
		return ctx.Bool(key, v)
	case time.Time:
		return ctx.Time(key, v)
	case time.Duration:
		return ctx.Dur(key, v)
	case error:
		if key == "error" || key == "err" {
			return ctx.Err(v)
		}
		return ctx.Str(key, v.Error())
	default:
		return ctx.Interface(key, v)
	}
}
