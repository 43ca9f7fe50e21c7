package events

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrSubscriptionNotFound indicates the subscription doesn't exist on the
// device any more (HTTP 412 Precondition Failed).
var ErrSubscriptionNotFound = fmt.Errorf("subscription not found")

// SubscriptionClient issues UPnP GENA SUBSCRIBE/RENEW/UNSUBSCRIBE requests.
type SubscriptionClient struct {
	httpClient *http.Client
}

// NewSubscriptionClient creates a subscription client with the given
// per-request timeout.
func NewSubscriptionClient(timeout time.Duration) *SubscriptionClient {
	return &SubscriptionClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Subscribe sends a SUBSCRIBE request to eventURL and returns the SID and
// the timeout the device actually granted.
func (c *SubscriptionClient) Subscribe(ctx context.Context, eventURL, callbackURL string, timeout int) (sid string, actualTimeout int, err error) {
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("CALLBACK", fmt.Sprintf("<%s>", callbackURL))
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeout))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("subscribe request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("subscribe failed: %s", resp.Status)
	}

	sid = resp.Header.Get("SID")
	if sid == "" {
		return "", 0, fmt.Errorf("no SID in response")
	}

	actualTimeout = ParseTimeout(resp.Header.Get("TIMEOUT"))
	return sid, actualTimeout, nil
}

// Renew sends a renewal SUBSCRIBE request carrying the existing SID.
func (c *SubscriptionClient) Renew(ctx context.Context, eventURL, sid string, timeout int) (actualTimeout int, err error) {
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("SID", sid)
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeout))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("renew request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed {
		return 0, ErrSubscriptionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("renew failed: %s", resp.Status)
	}

	return ParseTimeout(resp.Header.Get("TIMEOUT")), nil
}

// Unsubscribe sends an UNSUBSCRIBE request. Network errors and an already-
// gone subscription (412) are both treated as success since the end state
// is the same: nothing left subscribed on the device.
func (c *SubscriptionClient) Unsubscribe(ctx context.Context, eventURL, sid string) error {
	req, err := http.NewRequestWithContext(ctx, "UNSUBSCRIBE", eventURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("SID", sid)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unsubscribe failed: %s", resp.Status)
	}
	return nil
}

// ParseTimeout extracts the timeout in seconds from a TIMEOUT header value
// such as "Second-1800" or "infinite".
func ParseTimeout(timeoutHeader string) int {
	if timeoutHeader == "infinite" {
		return 86400
	}
	timeoutHeader = strings.TrimPrefix(timeoutHeader, "Second-")
	if timeout, err := strconv.Atoi(timeoutHeader); err == nil {
		return timeout
	}
	return 1800
}

// ParseSEQ extracts the sequence number from a NOTIFY SEQ header.
func ParseSEQ(seqHeader string) int {
	if seq, err := strconv.Atoi(seqHeader); err == nil {
		return seq
	}
	return 0
}
