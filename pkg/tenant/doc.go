// Package tenant binds each inbound HTTP request to at most one tenant.
//
// Resolution order, first match wins:
//
//  1. the tenant header (X-Tenant by default);
//  2. the leftmost label of a genuine subdomain host such as
//     acme.app.example.com (localhost, raw IPs and hosts with fewer than
//     three labels never qualify);
//  3. the tenant_slug claim of an authenticated caller;
//  4. the caller's earliest active membership.
//
// A header or host hint that names an unknown tenant falls through to the
// identity based steps.
//
// Middleware allocates a new Context for every request and stores it in the
// request's context.Context. Downstream code reads it with FromContext and
// picks a database through ConnectionResolver. Unresolved requests are
// denied with 403 unless the path is public; resolver errors are logged and
// denied the same way.
//
//	resolver := tenant.NewResolver(cachedStore)
//	r.Use(jwt.OptionalMiddleware(tokens))
//	r.Use(tenant.Middleware(resolver,
//	    tenant.WithLogger(log),
//	    tenant.WithMetrics(tenant.NewMetrics(prometheus.DefaultRegisterer)),
//	))
//
// CachedStore puts a ristretto L1 and an optional redis L2 in front of any
// Store. Writers call InvalidateTenant / InvalidateUser after mutations.
package tenant
