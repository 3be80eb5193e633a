// Package telemetry initializes OpenTelemetry tracing and metrics for
// meshkit services.
//
//	shutdown, err := telemetry.Init(ctx, telemetry.Config{ServiceName: "meshgate"})
//	defer shutdown(ctx)
//
//	meter := telemetry.Meter("meshgate")
//	tracer := telemetry.Tracer("meshgate")
package telemetry
