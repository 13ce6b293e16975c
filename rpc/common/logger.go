package common

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerNames are the package loggers of h5tree.
var LoggerNames = []string{
	"backend",
	"tables",
	"kvtree",
	"h5",
	"lockmgr",
	"rpc",
	"transport/rpc",
	"cmd",
}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// h5Logger implements the ILogger interface on top of a zap logger. Level
// gating stays with the dragonboat level so SetLevel works per package.
type h5Logger struct {
	name  string
	level logger.LogLevel
	zap   *zap.SugaredLogger
}

func (l *h5Logger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *h5Logger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.zap.Debugf(l.format(format), args...)
	}
}

func (l *h5Logger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.zap.Infof(l.format(format), args...)
	}
}

func (l *h5Logger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.zap.Warnf(l.format(format), args...)
	}
}

func (l *h5Logger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.zap.Errorf(l.format(format), args...)
	}
}

func (l *h5Logger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// format prefixes the message with the package name column
func (l *h5Logger) format(format string) string {
	return fmt.Sprintf("%-15s | %s", l.name, format)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	baseMu sync.Mutex
	base   *zap.Logger
)

// NewZapLogger builds the zap logger all package loggers write through.
// Format is "console" (default) or "json".
func NewZapLogger(format string) (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	c.Sampling = nil
	c.Encoding = "console"
	if strings.EqualFold(format, "json") {
		c.Encoding = "json"
	}
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	c.OutputPaths = []string{"stdout"}

	return c.Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.FatalLevel)),
	)
}

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	baseMu.Lock()
	defer baseMu.Unlock()

	if base == nil {
		l, err := NewZapLogger("console")
		if err != nil {
			panic(fmt.Sprintf("failed to build zap logger: %v", err))
		}
		base = l
	}

	return &h5Logger{
		name:  pkgName,
		level: logger.INFO,
		zap:   base.Sugar(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the zap backed factory and sets the level of all
// package loggers.
func InitLoggers(level, format string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	l, err := NewZapLogger(format)
	if err != nil {
		return fmt.Errorf("failed to build zap logger: %w", err)
	}

	baseMu.Lock()
	base = l
	baseMu.Unlock()

	// Set as the global logger factory
	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
