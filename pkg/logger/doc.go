// Package logger provides structured logging for likes-to-go.
//
// It wraps zerolog with a small interface so components can take a Logger
// and tests can swap in a TestLogger or NewNopLogger. Console output goes to
// stderr so it does not fight with the terminal UI on stdout. When a log file
// is configured it is rotated by lumberjack.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "orchestrator")
//	log.InfoWithFields("Collection finished", map[string]interface{}{
//	    "tracks": 42,
//	})
package logger
