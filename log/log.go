package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

func init() {
	// Allow overriding the default log level via $LOG_LEVEL so that the
	// environment variable can be set globally even when running tests.
	// Always initializing the logger also avoids nil panics when a caller
	// logs before calling Init.
	level := "error"
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level = s
	}
	Init(level, "stderr")
}

// Logger returns the underlying sugared logger.
func Logger() *zap.SugaredLogger { return log }

// Init initializes the logger. Output can be "stdout", "stderr" or a file path.
func Init(logLevel, output string) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(levelFromString(logLevel))
	cfg.OutputPaths = []string{output}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	log = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func levelFromString(logLevel string) zapcore.Level {
	switch logLevel {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func Debugf(template string, args ...any) { log.Debugf(template, args...) }

func Infof(template string, args ...any) { log.Infof(template, args...) }

func Warnf(template string, args ...any) { log.Warnf(template, args...) }

func Errorf(template string, args ...any) { log.Errorf(template, args...) }
