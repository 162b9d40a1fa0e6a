package vecstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/model"
)

func TestClientQuery(t *testing.T) {
	var gotReq QueryRequest
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query", r.URL.Path)
		gotKey = r.Header.Get("Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"matches": []model.Match{
				{ID: "a", Score: 0.91, Metadata: map[string]any{"title": "doc a"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret-key"})
	matches, err := client.Query(context.Background(), QueryRequest{
		Vector:          []float32{1, 2, 3},
		TopK:            5,
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Equal(t, "secret-key", gotKey)
	require.Equal(t, 5, gotReq.TopK)
	require.Len(t, matches, 1)
	require.Equal(t, "a", matches[0].ID)
	require.InDelta(t, 0.91, matches[0].Score, 1e-9)
}

func TestClientUpsert(t *testing.T) {
	var body struct {
		Vectors []model.VectorRecord `json:"vectors"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vectors/upsert", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	err := client.Upsert(context.Background(), []model.VectorRecord{
		{ID: "r1", Values: []float32{0.5}, Metadata: map[string]any{"title": "t"}},
	})
	require.NoError(t, err)
	require.Len(t, body.Vectors, 1)
	require.Equal(t, "r1", body.Vectors[0].ID)
}

func TestClientStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/describe_index_stats", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"totalVectorCount": 1234})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1234, stats.TotalVectorCount)
}

func TestClientDeleteShapes(t *testing.T) {
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vectors/delete", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, client.Delete(context.Background(), []string{"a", "b"}))
	require.NoError(t, client.DeleteOne(context.Background(), "c"))

	require.Len(t, bodies, 2)
	require.Contains(t, bodies[0], "ids")
	require.Contains(t, bodies[1], "id")
	require.Equal(t, "c", bodies[1]["id"])
}

func TestClientControlPlane(t *testing.T) {
	control := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/indexes", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"indexes": []map[string]any{{"name": "kb-main"}, {"name": "kb-staging"}},
			})
		case http.MethodPost:
			var spec IndexSpec
			require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
			require.Equal(t, "kb-new", spec.Name)
			require.Equal(t, 1536, spec.Dimension)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer control.Close()

	client := NewClient(ClientConfig{BaseURL: "http://unused.invalid", ControlURL: control.URL})
	names, err := client.ListIndexes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"kb-main", "kb-staging"}, names)

	require.NoError(t, client.CreateIndex(context.Background(), IndexSpec{
		Name: "kb-new", Dimension: 1536, Metric: "cosine",
	}))
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"index not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.Stats(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
	require.Contains(t, err.Error(), "index not found")
}
