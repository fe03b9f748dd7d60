// Package secrets synchronizes credential material into the provider's
// secret store. A sync is write-once-append-version: the secret name is
// created if missing, a fresh version is always written, and the accessor
// identity's read grant is re-applied on every pass because binding state
// can drift independently of the secret itself.
package secrets
