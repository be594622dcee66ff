package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	xerrors "github.com/YuminosukeSato/xaibench/pkg/errors"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackFieldName = StacktraceAttrKey
	zerolog.ErrorStackMarshaler = extractStacktrace
}

// extractStacktrace returns the stack recorded by cockroachdb/errors, if any.
func extractStacktrace(err error) interface{} {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return nil
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a Logger writing JSON records to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// NewConsoleLogger creates a Logger writing human-readable records to w.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "02-Jan-06 15:04:05"}
	return NewZerologLogger(cw, level)
}

func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.write(l.zl.Debug(), msg, fields)
}

func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *ZerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = withError(ev, err)
			fields = fields[1:]
		}
	}
	l.write(ev, msg, fields)
}

func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func (l *ZerologLogger) write(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			if key == ErrAttrKey {
				ev = ev.Stack().Err(v)
			} else {
				ev = ev.AnErr(key, v)
			}
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

// withError attaches err, its stack and, for the typed errors, an error code.
func withError(ev *zerolog.Event, err error) *zerolog.Event {
	ev = ev.Stack().Err(err)
	if code := ErrorCode(err); code != "" {
		ev = ev.Str(ErrorCodeKey, code)
	}
	return ev
}

// ErrorCode maps the typed errors of pkg/errors to an Error* code, or "".
func ErrorCode(err error) string {
	var (
		notFitted *xerrors.NotFittedError
		dimension *xerrors.DimensionError
	)
	switch {
	case errors.As(err, &notFitted):
		return ErrorNotFitted
	case errors.As(err, &dimension):
		return ErrorDimensionMismatch
	case errors.Is(err, xerrors.ErrEmptyData):
		return ErrorEmptyData
	case errors.Is(err, xerrors.ErrNoTarget):
		return ErrorNoTarget
	case errors.Is(err, xerrors.ErrNotImplemented):
		return ErrorNotImplemented
	default:
		return ""
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider is the default LoggerProvider.
type ZerologProvider struct {
	mu      sync.RWMutex
	out     io.Writer
	level   Level
	console bool
	root    *ZerologLogger
}

// NewZerologProvider creates a provider writing to out.
func NewZerologProvider(out io.Writer, level Level, console bool) *ZerologProvider {
	p := &ZerologProvider{out: out, level: level, console: console}
	p.rebuild()
	return p
}

func (p *ZerologProvider) rebuild() {
	if p.console {
		p.root = NewConsoleLogger(p.out, p.level)
		return
	}
	p.root = NewZerologLogger(p.out, p.level)
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.rebuild()
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo, false)
)

// SetProvider replaces the process-wide provider and routes library warnings to it.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	provider = p
	providerMu.Unlock()

	warnLogger := p.GetLoggerWithName("warnings")
	xerrors.SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			warnLogger.Warn(w.Error(), "warning", m)
			return
		}
		warnLogger.Warn(w.Error())
	})
}

// Setup installs a zerolog provider from configuration values.
// format is "json" or "console".
func Setup(out io.Writer, level, format string) error {
	lvl, ok := ParseLevel(level)
	if !ok {
		return xerrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
	switch format {
	case "", "json":
		SetProvider(NewZerologProvider(out, lvl, false))
	case "console":
		SetProvider(NewZerologProvider(out, lvl, true))
	default:
		return xerrors.NewValidationError("log_format", "must be json or console", format)
	}
	return nil
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns the default logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// SetLevel changes the minimum level of the default provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	provider.SetLevel(level)
}
