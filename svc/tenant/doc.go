// Package tenant is the administrative side of the tenant catalog.
//
// Service creates, updates and deletes tenants, changes their lifecycle status,
// manages user memberships and triggers provisioning. Writes run the
// uniqueness pre-checks for slugs (case-insensitive) and database names, and
// invalidate the resolution cache through an Invalidator so that the request
// path in pkg/tenant sees changes without waiting for TTL expiry.
//
// Two Store implementations are provided: NewPostgresStore for the
// control-plane database and NewInMemStore for tests and local tooling.
// Handler exposes the service as a JSON API on a chi router:
//
//	r.Mount("/admin", tenant.NewHandler(svc, log).Routes())
package tenant
