package logging

import (
	"github.com/pkg/errors"

	"github.com/gbili/di-why/framework/config"
)

// Sink is what the kernel logs through. *slog.Logger and *ZapAdapter both
// satisfy it, as well as the container's Logger.
type Sink interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// FromConfig builds the sink selected by cfg.Log.Driver: "zap" or slog.
func FromConfig(cfg *config.Config) (Sink, error) {
	switch cfg.Log.Driver {
	case "zap":
		l, err := NewZap(cfg.App.Env)
		if err != nil {
			return nil, errors.Wrap(err, "logging: zap")
		}
		return FromZap(l), nil
	case "", "slog":
		return NewLogger(cfg.Log.Level, cfg.Log.Handler), nil
	}
	return nil, errors.Errorf("logging: unknown driver %q", cfg.Log.Driver)
}
