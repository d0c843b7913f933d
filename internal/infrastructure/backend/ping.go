package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Ping probes backend reachability for the readiness endpoint. Any HTTP
// response counts as reachable — an unauthenticated validate call is expected
// to be rejected, not dropped.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/validate-token", http.NoBody)
	if err != nil {
		return fmt.Errorf("auth gateway: build ping request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth backend unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}
