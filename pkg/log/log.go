// Package log provides the structured logging facade used across SciGo
// estimators. It wraps github.com/rs/zerolog so call sites depend on a
// small interface instead of a concrete logging library.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Well-known structured field keys, kept here so call sites don't typo them.
const (
	ModelNameKey  = "model"
	ComponentKey  = "component"
	OpKey         = "op"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	DurationMsKey = "duration_ms"
	PredsKey      = "predictions"
)

// Well-known values for OperationKey and PhaseKey.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	PhaseTraining    = "training"
	PhaseInference   = "inference"
)

// Level mirrors zerolog's level enumeration without leaking the dependency
// into call sites.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	DisabledLevel
)

// ToLogLevel parses a level name ("debug", "info", "warn", "error",
// "disabled"), defaulting to InfoLevel for anything unrecognized.
func ToLogLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "disabled", "off", "silent":
		return DisabledLevel
	default:
		return InfoLevel
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case DisabledLevel:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the structured logging interface implementations depend on.
// Each method takes a message followed by alternating key/value pairs, in
// the spirit of log/slog.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	// With returns a logger that always includes the given key/value pairs.
	With(keyvals ...interface{}) Logger
}

// LoggerProvider mints named loggers that share a common sink and level.
type LoggerProvider interface {
	GetLoggerWithName(name string) Logger
}

type zerologLogger struct {
	z zerolog.Logger
}

func (l zerologLogger) event(level zerolog.Level, msg string, keyvals []interface{}) {
	ev := l.z.WithLevel(level)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}

func (l zerologLogger) Debug(msg string, keyvals ...interface{}) { l.event(zerolog.DebugLevel, msg, keyvals) }
func (l zerologLogger) Info(msg string, keyvals ...interface{})  { l.event(zerolog.InfoLevel, msg, keyvals) }
func (l zerologLogger) Warn(msg string, keyvals ...interface{})  { l.event(zerolog.WarnLevel, msg, keyvals) }
func (l zerologLogger) Error(msg string, keyvals ...interface{}) { l.event(zerolog.ErrorLevel, msg, keyvals) }

func (l zerologLogger) With(keyvals ...interface{}) Logger {
	ctx := l.z.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return zerologLogger{z: ctx.Logger()}
}

// ZerologProvider is a LoggerProvider backed by a single zerolog sink; every
// named logger it mints is tagged with a "component" field.
type ZerologProvider struct {
	base zerolog.Logger
}

// NewZerologProvider builds a provider writing to stderr at the given level.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter builds a provider writing to w at the given
// level, useful for tests that want to assert on log output.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{base: zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()}
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return zerologLogger{z: p.base.With().Str(ComponentKey, name).Logger()}
}

var (
	defaultMu           sync.RWMutex
	defaultProviderOnce sync.Once
	defaultProvider     LoggerProvider
)

func defaultProv() LoggerProvider {
	defaultProviderOnce.Do(func() {
		defaultMu.Lock()
		defaultProvider = NewZerologProvider(ToLogLevel("info"))
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider
}

// SetDefaultProvider overrides the package-level provider used by
// GetLoggerWithName. It is intended for tests and for applications that want
// to redirect every estimator's logging to a custom sink.
func SetDefaultProvider(p LoggerProvider) {
	defaultProviderOnce.Do(func() {})
	defaultMu.Lock()
	defaultProvider = p
	defaultMu.Unlock()
}

// GetLoggerWithName returns a named logger from the package-level default
// provider, lazily initialized to a stderr zerolog sink at info level.
func GetLoggerWithName(name string) Logger {
	return defaultProv().GetLoggerWithName(name)
}

// SetupLogger installs the package-level default provider at the given
// level name ("debug", "info", "warn", "error", "disabled"), writing to
// stderr. Call it once from main before any estimator logs.
func SetupLogger(level string) {
	SetDefaultProvider(NewZerologProvider(ToLogLevel(level)))
}

// LogError logs err at Error level on the "scigo" logger with msg as the
// message, a convenience for call sites that don't hold a named logger.
func LogError(err error, msg string) {
	GetLoggerWithName("scigo").Error(msg, "error", err)
}
