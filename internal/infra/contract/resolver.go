// Package contract resolves the dynamic tool contract the console is allowed
// to dispatch against.
package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"opsd/internal/domain"
)

// contractSchemaJSON guards the raw payload before it is decoded. An entry
// missing name/method/path fails the whole document.
const contractSchemaJSON = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "method", "path"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"method": {"type": "string", "minLength": 1},
			"path": {"type": "string", "minLength": 1},
			"description": {"type": "string"}
		}
	}
}`

// DefaultContract is the built-in fallback used before any successful load
// and whenever a load cannot replace the cache.
func DefaultContract() domain.ToolContract {
	return domain.ToolContract{
		{
			Name:        "list_prefect_flows",
			Method:      domain.MethodGet,
			Path:        "/flows",
			Description: "List flow definitions known to the orchestrator",
		},
		{
			Name:        "get_marquez_lineage",
			Method:      domain.MethodGet,
			Path:        "/namespaces/{namespace}/jobs",
			Description: "List lineage jobs registered under a namespace",
		},
		{
			Name:        "run_hotpass_refine",
			Method:      domain.MethodPost,
			Path:        "/deployments/hotpass-refine/run",
			Description: "Trigger the hotpass refinement pipeline",
		},
	}
}

type loadState int

const (
	stateIdle loadState = iota
	stateLoading
	stateReady
)

// Resolver caches the tool contract fetched from the contract endpoint.
// Concurrent loads collapse into one fetch; failures keep the prior cache.
type Resolver struct {
	url    string
	http   *http.Client
	logger *zap.Logger
	schema *jsonschema.Resolved
	onLoad func(outcome string)

	mu       sync.Mutex
	state    loadState
	cached   domain.ToolContract
	inflight chan struct{}
}

type Option func(*Resolver)

// WithLoadHook observes load outcomes ("ok", "rejected", "error") for
// metrics without coupling the resolver to a registry.
func WithLoadHook(hook func(outcome string)) Option {
	return func(r *Resolver) { r.onLoad = hook }
}

func NewResolver(url string, httpClient *http.Client, logger *zap.Logger, opts ...Option) (*Resolver, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(contractSchemaJSON), &schema); err != nil {
		return nil, fmt.Errorf("parse contract schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve contract schema: %w", err)
	}

	r := &Resolver{
		url:    url,
		http:   httpClient,
		logger: logger,
		schema: resolved,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Cached returns the last known-good contract without blocking, or the
// built-in default before any successful load.
func (r *Resolver) Cached() domain.ToolContract {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil {
		return DefaultContract()
	}
	return r.cached.Clone()
}

// Load refreshes the contract from the endpoint. A Load issued while another
// is in flight waits on the same fetch instead of starting a second one.
// Load never returns an error: any failure is logged and the existing cache
// (or default) is returned.
func (r *Resolver) Load(ctx context.Context) domain.ToolContract {
	r.mu.Lock()
	if r.state == stateLoading {
		waitCh := r.inflight
		r.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
		}
		return r.Cached()
	}
	r.state = stateLoading
	done := make(chan struct{})
	r.inflight = done
	r.mu.Unlock()

	loaded, err := r.fetch(ctx)

	r.mu.Lock()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if domain.CodeOf(err) == domain.CodeInvalidArgument {
			outcome = "rejected"
		}
		r.logger.Warn("tool contract load failed, keeping cached contract",
			zap.String("url", r.url), zap.Error(err))
	} else {
		r.cached = loaded
	}
	r.state = stateReady
	r.inflight = nil
	close(done)
	r.mu.Unlock()

	if r.onLoad != nil {
		r.onLoad(outcome)
	}
	return r.Cached()
}

func (r *Resolver) fetch(ctx context.Context) (domain.ToolContract, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.CodeUnavailable, "contract.fetch", "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.NewError(domain.CodeUnavailable, "contract.fetch",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.CodeUnavailable, "contract.fetch", "read body", err)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.NewError(domain.CodeInvalidArgument, "contract.decode", "malformed contract payload", err)
	}
	if err := r.schema.Validate(decoded); err != nil {
		return nil, domain.NewError(domain.CodeInvalidArgument, "contract.validate", "contract payload rejected by schema", err)
	}

	var contract domain.ToolContract
	if err := json.Unmarshal(body, &contract); err != nil {
		return nil, domain.NewError(domain.CodeInvalidArgument, "contract.decode", "malformed contract payload", err)
	}
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	return contract, nil
}
