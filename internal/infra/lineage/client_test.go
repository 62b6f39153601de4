package lineage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"opsd/internal/domain"
)

func TestListJobsEscapesNamespace(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[{"name":"hotpass.refine","namespace":"prod pipelines"}]`))
	}))
	defer server.Close()

	jobs, err := NewClient(server.URL, server.Client(), nil).ListJobs(context.Background(), "prod pipelines")
	require.NoError(t, err)
	require.Equal(t, "/namespaces/prod%20pipelines/jobs", gotPath)
	require.Len(t, jobs, 1)
	require.Equal(t, "hotpass.refine", jobs[0].Name)
}

func TestListJobsRequiresNamespace(t *testing.T) {
	_, err := NewClient("http://lineage.local", nil, nil).ListJobs(context.Background(), "  ")
	require.Error(t, err)
	require.Equal(t, domain.CodeInvalidArgument, domain.CodeOf(err))
}

func TestListNamespaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/namespaces", r.URL.Path)
		_, _ = w.Write([]byte(`[{"name":"default"},{"name":"prod"}]`))
	}))
	defer server.Close()

	namespaces, err := NewClient(server.URL, server.Client(), nil).ListNamespaces(context.Background())
	require.NoError(t, err)
	require.Len(t, namespaces, 2)
}

func TestListNamespacesUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client(), nil).ListNamespaces(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.CodeUnavailable, domain.CodeOf(err))
}
