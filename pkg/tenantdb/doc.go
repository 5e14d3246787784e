// Package tenantdb hands the data layer a connection pool for the tenant of
// the current request.
//
// Pools are keyed by connection string and kept in a bounded LRU registry;
// evicted pools are closed in the background. InTx runs a function inside a
// transaction whose app.tenant_id setting carries the resolved tenant id, so
// row-level-security policies of the form
//
//	USING (tenant_id = current_setting('app.tenant_id', true)::bigint)
//
// filter rows without any query having to mention the tenant. Unresolved
// requests leave the setting NULL and such policies match nothing.
package tenantdb
