// Package redis connects the engine to Redis, which backs the digest
// bucket store so queued notifications survive restarts and can be shared
// between engine instances.
//
// Connect retries until the server is reachable; Healthcheck plugs into
// the HTTP readiness probe.
package redis
