// Package logger exposes the process-wide structured logger for the
// engine and its scripts.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

// Init builds the logger from LOG_LEVEL and APP_ENV. The engine calls it
// once at startup; development runs get console output, everything else
// JSON.
func Init() {
	level, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = zapcore.InfoLevel
	}

	dev := os.Getenv("APP_ENV") == "development"
	encoding := "json"
	if dev {
		encoding = "console"
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      dev,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		sugar = zap.Must(zap.NewProduction()).Sugar()
		sugar.Warnw("logger config rejected, using production defaults", "error", err)
		return
	}
	sugar = built.Sugar()
}

// get installs production defaults when something logs before Init runs
// (library code under test, mostly).
func get() *zap.SugaredLogger {
	if sugar == nil {
		sugar = zap.Must(zap.NewProduction()).Sugar()
	}
	return sugar
}

func Debug(msg string, keysAndValues ...interface{}) {
	get().Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	get().Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	get().Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	get().Errorw(msg, keysAndValues...)
}

func Fatal(msg string, err error) {
	get().Fatalw(msg, "error", err)
}

func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
