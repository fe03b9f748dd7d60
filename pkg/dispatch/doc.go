// Package dispatch fires deploy-time smoke invocations: FireNow triggers one
// out-of-band run of the reconciled trigger through the provider, and
// InvokeService POSTs straight to the service's run endpoint with a bearer
// identity token. Dispatch failure is reported but never fatal to a
// provisioning run; the scheduled path remains valid.
package dispatch
