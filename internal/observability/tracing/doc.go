// Package tracing provides OpenTelemetry spans for the notification pipeline.
//
// Spans are opened around report fan-out, batch dispatch and retention sweeps.
// Without an installed TracerProvider they are no-ops.
//
//	ctx, span := tracing.StartSpan(ctx, "notify.dispatch", attribute.Int("intents", n))
//	defer func() { tracing.EndSpan(span, err) }()
package tracing
