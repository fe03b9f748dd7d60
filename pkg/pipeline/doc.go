// Package pipeline is the invocation boundary to the external
// scrape-and-report pipeline. The Invoker interface exposes a single-shot,
// parameterized process invocation with exit-status semantics; ExecInvoker
// realizes it as a subprocess carrying the session's full flag vector (date
// range, scope, document naming, email delivery). The pipeline's internals
// (portal login, spreadsheet download, document assembly, mail transport)
// live entirely behind this boundary.
package pipeline
