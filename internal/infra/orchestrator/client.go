// Package orchestrator is the HTTP client for the external workflow
// orchestrator the console observes.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"opsd/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// ListFlows returns the orchestrator's flow definitions.
func (c *Client) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	var flows []domain.Flow
	if err := c.getJSON(ctx, c.baseURL+"/flows", &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// ListFlowRuns returns the most recent flow runs, newest first as served by
// the orchestrator. limit <= 0 falls back to the default page size.
func (c *Client) ListFlowRuns(ctx context.Context, limit int) ([]domain.FlowRun, error) {
	if limit <= 0 {
		limit = domain.DefaultFlowRunListLimit
	}
	endpoint := c.baseURL + "/flow_runs?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	var runs []domain.FlowRun
	if err := c.getJSON(ctx, endpoint, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewError(domain.CodeUnavailable, "orchestrator.get", "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.NewError(domain.CodeUnavailable, "orchestrator.get",
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, endpoint), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.CodeInternal, "orchestrator.decode", "", err)
	}
	return nil
}
