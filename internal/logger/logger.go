package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Log is the process-wide logger. It discards everything until Init runs.
	Log     = zerolog.Nop()
	logFile *os.File

	logLevel, logFormat string
)

// Init initializes the logger. An empty logFilePath writes to stderr so that
// command output on stdout stays machine readable.
func Init(logFilePath, level, format string) error {
	var out io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		Cleanup()
		logFile = f
		out = f
	}

	logLevel, logFormat = level, format
	Log = New(out, level, format)
	return nil
}

// New builds a zerolog logger writing to out in console or json format.
func New(out io.Writer, level, format string) zerolog.Logger {
	if format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    logFile != nil,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// RotateLog truncates the current log file and starts writing to it fresh.
func RotateLog(logFilePath string) error {
	Cleanup()

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	logFile = f
	Log = New(f, logLevel, logFormat)

	return nil
}

// Cleanup closes the log file when the application is done using it
func Cleanup() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

// Info logs an informational message with optional key/value pairs.
func Info(msg string, keyvals ...interface{}) {
	Log.Info().Fields(keyvals).Msg(msg)
}

// Error logs an error message with optional key/value pairs.
func Error(msg string, keyvals ...interface{}) {
	Log.Error().Fields(keyvals).Msg(msg)
}

func Debug(msg string, keyvals ...interface{}) {
	Log.Debug().Fields(keyvals).Msg(msg)
}
