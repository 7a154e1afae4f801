// Package logger provides a configurable slog.Logger factory with
// context-aware attribute injection and domain attribute helpers shared by
// the notification engine packages.
//
// # Basic Usage
//
//	log := logger.New(
//	    logger.WithProduction("notify-engine"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "delivery attempted",
//	    logger.NotificationID(id),
//	    logger.Channel("sms"),
//	)
package logger
