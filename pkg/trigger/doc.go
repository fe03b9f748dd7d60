// Package trigger converges the recurring schedule onto the deployed
// service. Ensure grants the invoker identity run-invoke rights, then
// creates or updates the named trigger with an OIDC token whose audience is
// the service URI itself; audience and target stay one value unless a spec
// carries an explicit override.
package trigger
