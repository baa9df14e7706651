// Package sinks holds the progress.Sink implementations: structured
// logs, Prometheus counters, and pub/sub notifications.
package sinks
