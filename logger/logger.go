// Package logger is the structured logging facade used by the cache
// packages. It wraps logrus with a single global instance and a
// caller-aware formatter so that a fatal invariant violation can be
// traced straight back to the page identity and call site that raised it.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the general-purpose instance used by Debug/Info/Warn.
	Logger *logrus.Logger
	// ErrorLogger is used by Error/Fatal so error output can be routed
	// to a separate sink (e.g. stderr plus a dedicated file) from info.
	ErrorLogger *logrus.Logger
)

// Config controls where log output goes and at what level.
type Config struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
}

// CustomFormatter renders one line per entry with timestamp, level and
// the caller that produced it.
type CustomFormatter struct {
	TimestampFormat string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	caller := getCaller()

	msg := fmt.Sprintf("[%s] [%s] (%s) %s\n", timestamp, level, caller, entry.Message)
	return []byte(msg), nil
}

func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "/logrus/") ||
			strings.Contains(file, "logger/logger.go") ||
			strings.Contains(file, "/entry.go") {
			continue
		}
		funcName := runtime.FuncForPC(pc).Name()
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), funcName, line)
	}
	return "unknown:unknown:0"
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// Init sets up Logger and ErrorLogger. Safe to call once at process
// startup; the package falls back to stdout/stderr if no file is given
// or cannot be opened.
func Init(cfg Config) error {
	formatter := &CustomFormatter{TimestampFormat: "15:04:05 MST 2006/01/02"}

	Logger = logrus.New()
	Logger.SetFormatter(formatter)
	Logger.SetLevel(parseLogLevel(cfg.LogLevel))

	ErrorLogger = logrus.New()
	ErrorLogger.SetFormatter(formatter)
	ErrorLogger.SetLevel(parseLogLevel(cfg.LogLevel))

	if cfg.InfoLogPath != "" {
		f, err := openLogFile(cfg.InfoLogPath)
		if err != nil {
			Logger.SetOutput(os.Stdout)
			Logger.Warnf("failed to open info log file %s, falling back to stdout: %v", cfg.InfoLogPath, err)
		} else {
			Logger.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	} else {
		Logger.SetOutput(os.Stdout)
	}

	if cfg.ErrorLogPath != "" {
		f, err := openLogFile(cfg.ErrorLogPath)
		if err != nil {
			ErrorLogger.SetOutput(os.Stderr)
			ErrorLogger.Warnf("failed to open error log file %s, falling back to stderr: %v", cfg.ErrorLogPath, err)
		} else {
			ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	} else {
		ErrorLogger.SetOutput(os.Stderr)
	}

	return nil
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

func ensureInit() {
	if Logger == nil || ErrorLogger == nil {
		_ = Init(Config{LogLevel: "info"})
	}
}

func Info(args ...interface{})  { ensureInit(); Logger.Info(args...) }
func Infof(format string, args ...interface{}) { ensureInit(); Logger.Infof(format, args...) }
func Debug(args ...interface{}) { ensureInit(); Logger.Debug(args...) }
func Debugf(format string, args ...interface{}) { ensureInit(); Logger.Debugf(format, args...) }
func Warn(args ...interface{})  { ensureInit(); Logger.Warn(args...) }
func Warnf(format string, args ...interface{}) { ensureInit(); Logger.Warnf(format, args...) }
func Error(args ...interface{}) { ensureInit(); ErrorLogger.Error(args...) }
func Errorf(format string, args ...interface{}) { ensureInit(); ErrorLogger.Errorf(format, args...) }

// Fatalf logs at fatal level and terminates the process. Reserved for
// invariant violations the cache cannot recover from.
func Fatalf(format string, args ...interface{}) { ensureInit(); ErrorLogger.Fatalf(format, args...) }
