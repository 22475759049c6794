// Package logger provides the structured logging interface used across mediagate.
//
// It wraps zerolog with a small interface so that components can take a
// Logger and tests can pass NewNopLogger or NewTestLogger instead.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("Server started")
//	logger.WithField("client", "1.2.3.4").Warn("Rate limit exceeded")
//
// Request scoped logging:
//
//	ctx = logger.ContextWithRequestID(ctx, id)
//	log := logger.GetLogger().WithContext(ctx)
//	log.InfoWithFields("Channel fetched", map[string]interface{}{
//	    "channel_id": id,
//	})
package logger
