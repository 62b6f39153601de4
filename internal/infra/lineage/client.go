// Package lineage is the HTTP client for the external lineage service.
package lineage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
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

// ListNamespaces returns all lineage namespaces.
func (c *Client) ListNamespaces(ctx context.Context) ([]domain.LineageNamespace, error) {
	var namespaces []domain.LineageNamespace
	if err := c.getJSON(ctx, c.baseURL+"/namespaces", &namespaces); err != nil {
		return nil, err
	}
	return namespaces, nil
}

// ListJobs returns the jobs registered under a namespace.
func (c *Client) ListJobs(ctx context.Context, namespace string) ([]domain.LineageJob, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, domain.NewError(domain.CodeInvalidArgument, "lineage.jobs", "namespace is required", errors.New("empty namespace"))
	}
	endpoint := c.baseURL + "/namespaces/" + url.PathEscape(namespace) + "/jobs"
	var jobs []domain.LineageJob
	if err := c.getJSON(ctx, endpoint, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewError(domain.CodeUnavailable, "lineage.get", "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.NewError(domain.CodeUnavailable, "lineage.get",
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, endpoint), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.CodeInternal, "lineage.decode", "", err)
	}
	return nil
}
