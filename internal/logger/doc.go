// Package logger wraps zap for the yale-alarm CLI and client library:
//   - a global sugared logger writing a console encoding to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level switching,
//   - leveled helpers (DebugKV, InfoKV, ErrorKV, ...).
//
// Library code never receives a logger explicitly: it pulls one from the
// request context, so callers scope logs by decorating the context.
package logger
