// Package storage persists the local run journal in BoltDB. Every
// reconciliation run and session run leaves a record here so an operator can
// audit what happened after the fact. The journal is never consulted to make
// control decisions; remote provider state stays the source of truth.
package storage
