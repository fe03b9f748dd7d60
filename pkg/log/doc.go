/*
Package log provides structured logging for Relator using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. Reconciliation steps log with resource kind and
name fields; session attempts log with session_id, so a run can be
reconstructed from log lines alone.

OpenRunLog tees output into a timestamped transcript file under the output
directory, independent of whatever the invoked pipeline writes itself.
*/
package log
