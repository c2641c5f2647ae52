// Package logging provides structured logging for TwinkleTaps Core.
//
// It wraps log/slog with JSON (production) or text (development) output,
// level filtering and default service/version fields.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Attributes keyed password, mqtt_password, token, secret or authorization
// are written as [REDACTED]. Callers still avoid passing secrets at all.
package logging
