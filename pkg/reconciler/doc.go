/*
Package reconciler provisions and converges the cloud environment for the
report pipeline.

The reconciler is an idempotent ensure-state engine: given an environment
spec it walks a fixed dependency order and makes remote state match, kind by
kind, tolerating any mix of already-existing resources without creating
duplicates or drift.

# Architecture

One Apply call walks five resource kinds in strict order:

	registry → service identity → secrets → deployed service → trigger

Each kind implements the Resource interface (probe, then create if absent
else update). Ordering is load-bearing: the image reference lives in the
registry, the bindings name the identity, and the trigger targets the URI
the platform only assigns once the service is deployed. The first failure
aborts the whole run; later resources are defined in terms of earlier ones,
so continuing past a failure can only provision garbage.

Probe failures are fatal, not absent. A provider outage must never be read
as "resource missing" or the next step would create duplicates.

The composed image reference is validated against the expected
region-docker.pkg.dev shape before the first remote call; malformed
configuration fails the run up front rather than mid-deployment.

Reconciliation runs are infrequent and operator-triggered. The engine is
sequential and blocking, takes no locks against concurrent runs, and relies
on the provider's per-name atomicity; two simultaneous Apply calls against
the same names may race.

# Usage

	rec := reconciler.New(prov, journal)
	env, err := rec.Apply(ctx, &manifest.Spec, config.SnapshotEnv())
	if err != nil {
		// fatal: fix configuration or provider state and re-run
	}
	// env.ServiceURI is live and the trigger fires on schedule
*/
package reconciler
