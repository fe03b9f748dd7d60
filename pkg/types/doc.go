/*
Package types defines the core data structures used throughout Relator.

This package contains the domain model shared by all other packages: resource
descriptors for the provisioned cloud environment (registry, secrets, service
identity, deployed service, scheduled trigger), session definitions for the
report pipeline, and the run records persisted to the local journal.

Descriptors are declarative. A ResourceDescriptor names the desired state of
one remote resource; the reconciler makes remote state match it. Names are
stable idempotency keys, so applying the same descriptor set twice leaves
remote state unchanged.

Sessions are consumed, not persisted: each Session is built from static
configuration at runner start, driven through at most Retry.MaxAttempts
pipeline invocations, and discarded. Only the resulting SessionRun record
survives, in the bbolt journal.
*/
package types
