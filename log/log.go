// Package log provides a small structured-logging façade over zerolog,
// used by every other package in this module instead of the standard
// library's log package.
package log

import (
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// LogLevel identifies a logging severity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

const (
	// logTestWriterName is the special output name used by tests and
	// benchmarks to redirect log output to logTestWriter instead of a
	// real file or stream.
	logTestWriterName = "test"
)

var (
	logger zerolog.Logger
	level  LogLevel = LogLevelInfo

	// panicOnInvalidChars, when true, makes the *f logging functions panic
	// (the panic is not recovered here) if a formatted message contains
	// bytes that are not valid UTF-8. Off by default; it is unexported and
	// only this package's tests set it.
	panicOnInvalidChars bool

	// logTestWriter is the writer used when Init is called with output
	// logTestWriterName. Tests swap it out to avoid growing a buffer.
	logTestWriter io.Writer = os.Stderr
)

func init() {
	Init("info", "stderr", nil)
}

// Init (re)configures the global logger. level is one of
// debug/info/warn/error/fatal. output is "stdout", "stderr", the special
// value "test", or a file path. errorOutput, if non-nil, additionally
// receives every record that output receives, at all enabled levels; it
// is not filtered to warn/error/fatal.
func Init(levelStr, output string, errorOutput io.Writer) {
	level = parseLevel(levelStr)

	var w io.Writer
	switch output {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	case logTestWriterName:
		w = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log: could not open %q, falling back to stderr: %v\n", output, err)
			w = os.Stderr
		} else {
			w = f
		}
	}

	writers := []io.Writer{w}
	if errorOutput != nil {
		writers = append(writers, errorOutput)
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerologLevel(level)).
		With().Timestamp().Logger()
}

// Level returns the currently configured log level.
func Level() LogLevel { return level }

func parseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

func zerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) { logger.Debug().Msg(checkedSprintf(format, args...)) }

// Infof logs a formatted info message.
func Infof(format string, args ...any) { logger.Info().Msg(checkedSprintf(format, args...)) }

// Warnf logs a formatted warning message.
func Warnf(format string, args ...any) { logger.Warn().Msg(checkedSprintf(format, args...)) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...any) { logger.Error().Msg(checkedSprintf(format, args...)) }

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(format string, args ...any) { logger.Fatal().Msg(checkedSprintf(format, args...)) }

// checkedSprintf formats like fmt.Sprintf, panicking if the result is not
// valid UTF-8 and panicOnInvalidChars is enabled. Left disabled (the
// default), invalid bytes are passed through unchanged.
func checkedSprintf(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if panicOnInvalidChars && !utf8.ValidString(msg) {
		panic(fmt.Sprintf("log: invalid utf-8 in log message: %q", msg))
	}
	return msg
}

// Error logs an error value.
func Error(err error) { logger.Error().Msg(err.Error()) }

// Warn logs an error value at warn level.
func Warn(err error) { logger.Warn().Msg(err.Error()) }

// Infow logs msg with structured key/value pairs at info level.
func Infow(msg string, kv ...any) { withFields(logger.Info(), kv...).Msg(msg) }

// Debugw logs msg with structured key/value pairs at debug level.
func Debugw(msg string, kv ...any) { withFields(logger.Debug(), kv...).Msg(msg) }

// Warnw logs msg with structured key/value pairs at warn level.
func Warnw(msg string, kv ...any) { withFields(logger.Warn(), kv...).Msg(msg) }

// Errorw logs msg with structured key/value pairs at error level.
func Errorw(msg string, kv ...any) { withFields(logger.Error(), kv...).Msg(msg) }

func withFields(ev *zerolog.Event, kv ...any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		switch v := kv[i+1].(type) {
		case time.Duration:
			ev = ev.Dur(key, v)
		case time.Time:
			ev = ev.Time(key, v)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
