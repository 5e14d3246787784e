// Package logger builds *slog.Logger instances for pillar services.
//
// New returns a logger whose handler is wrapped by LogHandlerDecorator. The
// decorator runs every registered ContextExtractor on each record, so values
// that only exist for the duration of a request (tenant id, tenant slug,
// request id) show up in log lines without being threaded through call sites.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "pillar"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "tenant provisioned", logger.TenantSlug("acme"))
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
