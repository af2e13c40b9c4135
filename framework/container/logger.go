package container

// Logger is the diagnostics sink of a Container.
//
// *slog.Logger satisfies it directly; see the logging package for a zap adapter.
type Logger interface {
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
