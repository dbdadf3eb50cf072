// Package observability groups logging and tracing helpers.
//
// Subpackages:
//   - logging: slog JSON or text logger and request ID propagation
//   - tracing: OpenTelemetry spans around fan-out, dispatch and sweep
//
// Prometheus collectors live next to the code that records them
// (usecase/notify, usecase/retention, infra/worker, infra/notifier).
package observability
