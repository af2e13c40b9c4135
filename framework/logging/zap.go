package logging

import (
	"go.uber.org/zap"
)

// NewZap returns a production zap logger for env "production" and a
// development one otherwise.
func NewZap(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ZapAdapter lets a *zap.Logger serve as a container logger. Arguments are
// slog-style alternating keys and values.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// FromZap wraps l.
func FromZap(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{sugar: l.Sugar()}
}

func (a *ZapAdapter) Debug(msg string, args ...any) {
	a.sugar.Debugw(msg, args...)
}

func (a *ZapAdapter) Info(msg string, args ...any) {
	a.sugar.Infow(msg, args...)
}

func (a *ZapAdapter) Error(msg string, args ...any) {
	a.sugar.Errorw(msg, args...)
}
