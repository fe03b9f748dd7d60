/*
Package runner drives report sessions through the pipeline with bounded
retry.

A session run moves through a small state machine: prepare (reset the
download working directory, free the output document path), execute (one
pipeline invocation), then either succeed, pause and retry, or exhaust the
attempt budget and fail with the session identity and attempt count.

Two recoveries are contained here and never escape as failures: a stale
download directory is cleared before every run, and a pre-existing output
file that cannot be deleted is sidestepped by a timestamped resend name
rather than blocking the session.

Batches run strictly sequentially in declared order. The default policy
aborts on the first terminal failure; continue-on-error is an explicit
configuration choice that attempts every session and reports the failures
together.
*/
package runner
