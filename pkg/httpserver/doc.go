// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, health-check handlers and structured logging. The engine's
// HTTP surface and probes run on it.
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		slog.Error("server stopped", "err", err)
//	}
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then shuts down with the configured deadline. Listen errors are
// wrapped with ErrStart and shutdown errors with ErrShutdown.
package httpserver
