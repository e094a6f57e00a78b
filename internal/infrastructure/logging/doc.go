// Package logging provides structured logging for Gray Link Gateway.
//
// It wraps the standard library's log/slog with configuration-driven
// setup (level, format, output) and default fields identifying the
// service and version.
//
// # Usage
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("gateway started", "devices", 4)
//
//	// Component-scoped logger
//	sessionLog := log.With("component", "session")
//
// Components accept a narrow logger interface where possible so tests
// can substitute a no-op implementation.
package logging
