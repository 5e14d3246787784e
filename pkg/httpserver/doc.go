// Package httpserver runs an http.Handler with the configured timeouts and
// shuts it down gracefully on context cancellation or SIGINT/SIGTERM.
//
//	srv := httpserver.New(cfg, log)
//	r.Get("/health", httpserver.LivenessHandler())
//	r.Get("/ready", httpserver.ReadinessHandler(log, map[string]httpserver.Check{
//	    "postgres": pg.Healthcheck(pool),
//	}))
//	if err := srv.Run(ctx, r); err != nil {
//	    ...
//	}
//
// Listen failures are wrapped with ErrStart and drain failures with
// ErrShutdown.
package httpserver
