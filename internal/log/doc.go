// Package log provides slog loggers that mask sensitive information.
//
// The SecureHandler wraps any slog.Handler and masks:
//   - values of credential-like keys (cookie, authorization, token, password)
//   - values that look like bearer tokens, JWTs or API keys
//   - passwords and secret query parameters embedded in logged URLs
//
// Crawled URLs are logged a lot, so URL values keep their host and path and
// only the sensitive parts are replaced with MaskValue.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, log.Level(verbose, slog.LevelInfo))
//	logger.Info("fetched", "url", "https://example.org/kids?token=abc")
//	// url=https://example.org/kids?token=%2A%2A%2AREDACTED%2A%2A%2A
package log
