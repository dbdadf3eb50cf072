// Package logging builds the process slog logger and carries a per-invocation
// request ID through context.
//
// Every handled report event and every sweep tick gets its own request ID, so
// all log lines of one invocation can be correlated:
//
//	ctx, _ = logging.NewRequestID(ctx)
//	logger := logging.WithRequestID(ctx, slog.Default())
//	logger.Info("report event received", slog.String("report_id", id))
package logging
