// Package pkg provides shared utilities for the devcore kernel device layer.
//
// This package contains common functionality used by every subsystem,
// including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors and the signed [Status] code taxonomy
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a per-subsystem component:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDriver, "device bound", "name", "sai0")
//
// Interrupt-path code should prefer [Logger] to bind the component once.
//
// # Errors
//
// Class dispatch, the interrupt layer and discovery report failures as
// sentinel values that can be tested with [errors.Is]:
//
//	if errors.Is(err, pkg.ErrNotSupported) {
//	    // Driver lacks the operation
//	}
//
// A [Status] converts to and from these errors for callers that exchange
// numeric codes, such as the trace stream and the command-line tools.
package pkg
