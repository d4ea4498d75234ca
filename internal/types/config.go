package types

type RunMode string

const (
	// ModeLocal runs the reconciler inline, useful for scripts and tests
	ModeLocal RunMode = "local"
	// ModeWorker runs the reconciler as a queue consumer owned by the caller
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
