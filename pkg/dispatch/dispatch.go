package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/provider"
)

// Dispatcher fires one out-of-schedule run of a reconciled trigger, used
// for deploy-time smoke verification. It has no retry of its own: the
// scheduled path still exists and will fire later.
type Dispatcher struct {
	provider provider.Provider
	client   *http.Client
	tokens   oauth2.TokenSource
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(p provider.Provider) *Dispatcher {
	return &Dispatcher{
		provider: p,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// WithTokenSource sets the identity-token source used by InvokeService.
// The token audience must match the service URI.
func (d *Dispatcher) WithTokenSource(ts oauth2.TokenSource) *Dispatcher {
	d.tokens = ts
	return d
}

// WithHTTPClient overrides the HTTP client used by InvokeService
func (d *Dispatcher) WithHTTPClient(c *http.Client) *Dispatcher {
	d.client = c
	return d
}

// FireNow issues one out-of-band invocation of an existing trigger. It does
// not alter the schedule.
func (d *Dispatcher) FireNow(ctx context.Context, triggerName string) error {
	logger := log.WithComponent("dispatch")
	logger.Info().Str("trigger", triggerName).Msg("firing trigger now")

	if err := d.provider.InvokeNow(ctx, triggerName); err != nil {
		return fmt.Errorf("failed to fire trigger %s: %w", triggerName, err)
	}
	logger.Info().Str("trigger", triggerName).Msg("trigger fired")
	return nil
}

// InvokeService POSTs directly to the deployed service's run endpoint,
// bypassing the trigger. When a token source is configured the request
// carries a bearer identity token.
func (d *Dispatcher) InvokeService(ctx context.Context, serviceURI string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURI+"/run", nil)
	if err != nil {
		return fmt.Errorf("failed to build invoke request: %w", err)
	}
	if d.tokens != nil {
		tok, err := d.tokens.Token()
		if err != nil {
			return fmt.Errorf("failed to mint identity token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", serviceURI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("service %s returned %d: %s", serviceURI, resp.StatusCode, body)
	}
	return nil
}
