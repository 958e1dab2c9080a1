// Package origin fetches imported filter lists from the peer that
// publishes them.
package origin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/utils"
	"github.com/MrSnakeDoc/bitscreen/internal/version"
)

const (
	defaultTimeout = 30 * time.Second
	// maxBodyBytes bounds a fetched list body.
	maxBodyBytes = 32 << 20
)

// Client talks to peer origins. Every failure wraps domain.ErrNetwork,
// except refusals which wrap domain.ErrUnauthorized.
type Client struct {
	http *http.Client
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// VersionURL returns the version descriptor endpoint of an origin.
func VersionURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/version"
}

// FetchVersion retrieves {origin}/version.
func (c *Client) FetchVersion(ctx context.Context, origin string) (domain.VersionDescriptor, error) {
	var v domain.VersionDescriptor
	body, err := c.get(ctx, VersionURL(origin))
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("%w: decode version of %s: %v", domain.ErrNetwork, origin, err)
	}
	return v, nil
}

// FetchList retrieves the full list body published at origin. The body
// is returned as-is once it is known to be a JSON object.
func (c *Client) FetchList(ctx context.Context, origin string) (json.RawMessage, error) {
	body, err := c.get(ctx, origin)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: %s did not return a filter list", domain.ErrNetwork, origin)
	}
	return json.RawMessage(trimmed), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrNetwork, url, err)
	}
	defer utils.Close(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: GET %s: status %d", domain.ErrUnauthorized, url, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("%w: GET %s: unexpected status %d", domain.ErrNetwork, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrNetwork, url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrNetwork, url, maxBodyBytes)
	}
	return body, nil
}
