// Package bootstrap orchestrates application lifecycle for whisper-flash
// services.
//
// It wraps configuration validation, logger setup, component registration,
// and graceful shutdown on OS signals behind one App type. Long-running
// services use Run; finite CLI workflows use RunTask.
//
//	app, err := bootstrap.NewApp("worker", &cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.RegisterComponent(svc)
//	app.RegisterComponent(srv)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
