// Package logging provides the structured logging facility used across
// steward.
//
// All log entries carry a subsystem tag so that output from the watch
// dispatcher, the idle ticker, the leader coordinator and the CLI can be
// filtered independently. The package wraps log/slog with a printf-style
// call surface:
//
//	logging.Info("WatchDispatcher", "observed %d resources", n)
//	logging.Error("IdleTicker", err, "idle callback failed")
//
// Initialization happens once at process startup via InitForCLI, which
// installs a text handler with the configured minimum level. Components do
// not carry their own loggers; they log through the package functions with
// their subsystem name.
//
// Critical is reserved for faults the engine treats as unrecoverable (a
// watch stream Error event, an internal consistency fault). It logs and
// returns; terminating the process remains the caller's responsibility so
// tests can intercept the termination path.
package logging
