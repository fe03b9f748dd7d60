// Package metrics defines Relator's Prometheus metrics: reconciliation run
// counters and durations, per-kind resource actions, and session attempt and
// outcome counters. Metrics are registered at package init and exposed via
// Handler in the agent's serve mode.
package metrics
