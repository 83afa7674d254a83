package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// NewProductionLogger builds the process-wide logr.Logger every component
// ultimately logs through: zap does the sinking (JSON to stdout, sampled),
// zapr adapts it to the logr.Logger interface so call sites never import
// zap directly.
func NewProductionLogger() (logr.Logger, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// NewDevelopmentLogger builds a human-readable, unsampled logger for local
// runs and tests.
func NewDevelopmentLogger() (logr.Logger, error) {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// Log emits fields at info level through logger, using f's component tag
// (falling back to "swarm") as the logr message.
func Log(logger logr.Logger, f Fields, msg string) {
	logger.Info(msg, f.KeysAndValues()...)
}

// LogError emits fields at error level, attaching err to the record.
func LogError(logger logr.Logger, f Fields, msg string, err error) {
	logger.Error(err, msg, f.KeysAndValues()...)
}
