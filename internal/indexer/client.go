package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client talks to the remote transfer-history API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchTransferPage returns one page of the indexed transfer history for
// address on network.
func (c *Client) FetchTransferPage(ctx context.Context, network, address string, offset, limit int) (*TransferPage, error) {
	q := url.Values{}
	q.Set("network", network)
	q.Set("address", address)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transfers?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build transfer request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "indexer unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page TransferPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(err, "failed to decode transfer page")
	}
	return &page, nil
}
