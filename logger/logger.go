// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	sugar *zap.SugaredLogger
	file  *os.File
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	mu    sync.RWMutex
)

// current returns the active logger, creating a console logger on first use
func current() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		return s
	}

	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		sugar = build(os.Stdout, nil)
	}
	return sugar
}

// build tees a console core (colored when attached to a terminal) and a plain file core
func build(console io.Writer, fileOut io.Writer) *zap.SugaredLogger {
	var cores []zapcore.Core

	if console != nil {
		cfg := encoderConfig()
		if isTerminal(console) {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(console), level))
	}

	if fileOut != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(fileOut), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Init initializes the logger with optional file and console output
// If filename is empty, logs only to console
// If console is false, logs only to file
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}

	var consoleOut, fileOut io.Writer
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		fileOut = f
	}
	if console {
		consoleOut = os.Stdout
	}

	if consoleOut == nil && fileOut == nil {
		return fmt.Errorf("no output destination specified")
	}

	sugar = build(consoleOut, fileOut)
	return nil
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
// Messages below this level will not be logged
func SetLevel(l LogLevel) {
	switch l {
	case DEBUG:
		level.SetLevel(zapcore.DebugLevel)
	case INFO:
		level.SetLevel(zapcore.InfoLevel)
	case WARN:
		level.SetLevel(zapcore.WarnLevel)
	default:
		level.SetLevel(zapcore.ErrorLevel)
	}
}

// ParseLevel maps a config string such as "info" to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return DEBUG, fmt.Errorf("unknown log level %q", s)
	}
}

// Close flushes buffered entries and closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if sugar != nil {
		_ = sugar.Sync()
	}
	if file != nil {
		file.Close()
		file = nil
		sugar = nil
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { current().Debug(v...) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { current().Debugf(format, v...) }

// Info logs an info message
func Info(v ...interface{}) { current().Info(v...) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { current().Infof(format, v...) }

// Warn logs a warning message
func Warn(v ...interface{}) { current().Warn(v...) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { current().Warnf(format, v...) }

// Error logs an error message
func Error(v ...interface{}) { current().Error(v...) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { current().Errorf(format, v...) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) { current().Fatal(v...) }

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) { current().Fatalf(format, v...) }
