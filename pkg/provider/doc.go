/*
Package provider defines the reconciliation surface of the cloud platform.

The Provider interface is the only boundary through which the reconciler,
secret synchronizer, trigger scheduler and dispatcher touch remote state:
describe-by-name, create, update, append-secret-version, grant-binding and
fire-trigger-now. The real platform (registry, secret store, serverless
compute, scheduler, IAM) sits behind it; the core specifies the protocol of
calls, not the provider's internals.

The package also ships Emulator, an in-memory Provider with per-name
atomicity, append-only secret versions and grant counting. Tests drive the
reconciler against it, and deploy --dry-run uses it to print the call plan
without touching the platform.
*/
package provider
