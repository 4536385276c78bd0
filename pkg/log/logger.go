package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Only the first line of the stack is needed: "goroutine 123 [running]:".
	stackBufSize = 32
	// Shortest stack header that still carries a goroutine number.
	minStackHeaderLen = 12
	// len("goroutine ").
	goroutinePrefixLen = 10
	unknownGoroutine   = "unknown"
)

// Output formats accepted by Configure.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	Logger   zerolog.Logger
	stackBuf sync.Pool
)

func init() {
	stackBuf.New = func() any {
		return make([]byte, stackBufSize)
	}

	Logger = newLogger(consoleWriter(os.Stderr), zerolog.InfoLevel)
	log.Logger = Logger
}

// goroutineID parses the current goroutine number out of a truncated stack header.
func goroutineID() string {
	buf, ok := stackBuf.Get().([]byte)
	if !ok {
		return unknownGoroutine
	}
	defer stackBuf.Put(buf) //nolint:staticcheck // slice header reuse is intended

	n := runtime.Stack(buf, false)
	if n < minStackHeaderLen {
		return unknownGoroutine
	}

	end := goroutinePrefixLen
	for end < n && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == goroutinePrefixLen {
		return unknownGoroutine
	}
	return string(buf[goroutinePrefixLen:end])
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// Configure replaces the package logger. format is "console" or "json"; an empty
// format keeps the console writer. out defaults to stderr.
func Configure(level, format string, out io.Writer) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(format) {
	case "", FormatConsole:
		out = consoleWriter(out)
	case FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	Logger = newLogger(out, lvl)
	log.Logger = Logger
	return nil
}

// SetLevel changes the level of the package logger.
func SetLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	Logger = Logger.Level(lvl)
	log.Logger = Logger
	return nil
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
