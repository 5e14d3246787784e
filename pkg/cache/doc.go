// Package cache provides a small generic LRU cache.
//
// pillar uses it to bound the number of open per-tenant connection pools: the
// eviction callback closes the pool that fell out of the cache. Callbacks run
// after the cache lock is released, so a slow Close does not block lookups for
// other tenants.
package cache
