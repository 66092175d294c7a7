package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
)

func init() {
	sugar = build(os.Getenv("ENVIRONMENT"))
}

func build(env string) *zap.SugaredLogger {
	var (
		z   *zap.Logger
		err error
	)
	if env == "development" {
		z, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		z, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return z.Sugar()
}

// Init rebuilds the process logger for the given environment.
func Init(env string) {
	l := build(env)
	mu.Lock()
	sugar = l
	mu.Unlock()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

func Sync() {
	_ = current().Sync()
}
