// Package log provides slog loggers that never print session secrets.
//
// SecureHandler wraps any slog.Handler and masks:
//   - attributes whose key names a session cookie or a credential header
//     (cookie, SESSDATA, bili_jct, buvid3, authorization, ...)
//   - string values that set a session cookie, or a bare bili_jct token
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Debug("client ready", "cookie", cfg.Cookie) // cookie=***REDACTED***
package log
