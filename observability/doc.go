// Package observability provides OpenTelemetry metrics for the worker and
// proxy services.
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("whisper-worker"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("whisper-worker"))
//	metrics.RecordTask(ctx, "completed", duration)
package observability
