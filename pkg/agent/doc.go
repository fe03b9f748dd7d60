// Package agent exposes the session runner over HTTP for triggered
// execution. The deployed service and the local workstation agent are the
// same server: a scheduled trigger POSTs /run with an identity token, a
// developer POSTs /run with curl.
//
// Runs are serialized. The pipeline owns its working directories
// exclusively while a batch is in flight, so a second concurrent batch
// would corrupt downloads mid-attempt; overlapping requests get 409.
package agent
