// Package redis connects to a Redis server with retries and exposes a
// health check for readiness probes.
//
// Configuration is read from the environment through pkg/config:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	if cfg.Enabled() {
//	    client, err := redis.Connect(ctx, cfg)
//	    ...
//	}
//
// An empty REDIS_URL leaves redis disabled; callers fall back to the
// in-process cache only.
package redis
