package voyage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "voyage-3", req.Model)
		assert.Equal(t, []string{"query", "candidate"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		// Out-of-order data entries must still zip back by index.
		json.NewEncoder(w).Encode(embedResponse{
			Data: []embedDatum{
				{Index: 1, Embedding: []float64{0.3, 0.4}},
				{Index: 0, Embedding: []float64{0.1, 0.2}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "voyage-3", WithBaseURL(srv.URL))
	got, err := client.Embed(context.Background(), []string{"query", "candidate"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float64{0.1, 0.2}, got[0])
	assert.Equal(t, []float64{0.3, 0.4}, got[1])
}

func TestEmbed_MissingKeyFailsBeforeNetwork(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient("", "voyage-3", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
	assert.False(t, called)
}

func TestEmbed_HTTPErrorSurfacesDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", "voyage-3", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestEmbed_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient("test-key", "voyage-3", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestEmbed_RejectsBadVectorShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []embedDatum
		wantErr string
	}{
		{
			name:    "count mismatch",
			data:    []embedDatum{{Index: 0, Embedding: []float64{0.1}}},
			wantErr: "expected 2 embeddings",
		},
		{
			name: "inconsistent dimension",
			data: []embedDatum{
				{Index: 0, Embedding: []float64{0.1, 0.2}},
				{Index: 1, Embedding: []float64{0.3}},
			},
			wantErr: "inconsistent embedding dimension",
		},
		{
			name: "empty vector",
			data: []embedDatum{
				{Index: 0, Embedding: []float64{}},
				{Index: 1, Embedding: []float64{0.3}},
			},
			wantErr: "empty embedding",
		},
		{
			name: "index out of range",
			data: []embedDatum{
				{Index: 0, Embedding: []float64{0.1}},
				{Index: 5, Embedding: []float64{0.2}},
			},
			wantErr: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(embedResponse{Data: tt.data})
			}))
			defer srv.Close()

			client := NewClient("test-key", "voyage-3", WithBaseURL(srv.URL))
			_, err := client.Embed(context.Background(), []string{"a", "b"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key", "voyage-3")
	got, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
