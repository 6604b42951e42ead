package compose

import "log/slog"

// Notifier is the progress sink for user-visible run updates. Calls are
// fire-and-forget: they are never awaited and never affect control flow.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// logNotifier reports progress through slog.
type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier backed by the given logger.
// A nil logger falls back to slog.Default().
func NewLogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &logNotifier{logger: logger.With("component", "progress")}
}

func (n *logNotifier) Info(msg string)    { n.logger.Info(msg) }
func (n *logNotifier) Success(msg string) { n.logger.Info(msg, "outcome", "success") }
func (n *logNotifier) Error(msg string)   { n.logger.Warn(msg, "outcome", "error") }

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Info(string)    {}
func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}
