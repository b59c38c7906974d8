// Package health provides health classification for the query cache and
// the services embedding it.
//
// It defines a three-level Status vocabulary (healthy, degraded,
// unhealthy), a Checker interface, a cache checker deriving status from
// capacity usage, hit rate, and remote-tier reachability, an aggregator
// combining checkers, and HTTP handlers for liveness/readiness probes.
package health
