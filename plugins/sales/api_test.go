package sales

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgewood/folio/bundle"
)

// newRowServer serves paginated sales rows with rate-limit headers.
func newRowServer(t *testing.T, pages [][]map[string]any) (*httptest.Server, *[]string) {
	t.Helper()

	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		require.GreaterOrEqual(t, page, 1)
		require.LessOrEqual(t, page, len(pages))

		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(60-page))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(pageResponse{
			Rows:       pages[page-1],
			Page:       page,
			TotalPages: len(pages),
		}))
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func row(region, product string, units int, revenue float64) map[string]any {
	return map[string]any{
		"date": "2026-01-05", "region": region, "product": product,
		"units": units, "revenue": revenue,
	}
}

func TestIngestFromAPI_Paginates(t *testing.T) {
	srv, queries := newRowServer(t, [][]map[string]any{
		{row("north", "widget", 10, 100), row("south", "gadget", 5, 250)},
		{row("north", "widget", 2, 20)},
	})

	p := New(t.TempDir(), Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
	res, err := p.IngestFromAPI(context.Background(), map[string]any{"region": "all"})
	require.NoError(t, err)

	b := res.Bundle
	assert.Equal(t, 3, b.RecordCount())
	assert.InDelta(t, 370.0, b.Stats["total_revenue"], 0.001)
	assert.Equal(t, 17, b.Stats["total_units"], "JSON units must normalize to int")

	require.Equal(t, bundle.MethodAPI, b.Metadata.Method)
	require.NotNil(t, b.Metadata.API)
	assert.Equal(t, srv.URL, b.Metadata.API.Endpoint)
	assert.Equal(t, 2, b.Metadata.API.RequestCount)
	require.NotNil(t, b.Metadata.API.RateLimit)
	assert.Equal(t, 60, b.Metadata.API.RateLimit.Limit)
	assert.Equal(t, 58, b.Metadata.API.RateLimit.Remaining)

	assert.Equal(t, 2, res.APIMetadata["pages"])

	// The query filter travels on every page request.
	require.Len(t, *queries, 2)
	for _, q := range *queries {
		assert.Contains(t, q, "region=all")
	}

	require.NoError(t, b.Validate())
}

func TestIngestFromAPI_SinglePage(t *testing.T) {
	srv, _ := newRowServer(t, [][]map[string]any{
		{row("north", "widget", 1, 10)},
	})

	p := New(t.TempDir(), Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
	res, err := p.IngestFromAPI(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Bundle.RecordCount())
	assert.Equal(t, 1, res.APIMetadata["pages"])
}

func TestIngestFromAPI_Throttled(t *testing.T) {
	srv, _ := newRowServer(t, [][]map[string]any{
		{row("north", "widget", 1, 10)},
		{row("south", "widget", 1, 10)},
		{row("east", "widget", 1, 10)},
	})

	// One request per minute with burst 1: pages 2 and 3 both wait.
	p := New(t.TempDir(), Options{
		Endpoint:          srv.URL,
		HTTPClient:        srv.Client(),
		RequestsPerMinute: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.IngestFromAPI(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled, "throttle waits must honor cancellation")
}

func TestIngestFromAPI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p := New(t.TempDir(), Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
	_, err := p.IngestFromAPI(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestIngestFromAPI_NoRows(t *testing.T) {
	srv, _ := newRowServer(t, [][]map[string]any{{}})

	p := New(t.TempDir(), Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
	_, err := p.IngestFromAPI(context.Background(), nil)
	assert.Error(t, err)
}

func TestIngestFromAPI_NoEndpoint(t *testing.T) {
	p := New(t.TempDir(), Options{})
	_, err := p.IngestFromAPI(context.Background(), nil)
	assert.Error(t, err)
}
