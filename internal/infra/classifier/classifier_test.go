package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := New(Config{BaseURL: srv.URL, APIKey: "token"})
	return c, srv
}

func TestCategorizeDecodesCategoryWeights(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"categories": []map[string]any{
				{"label": "science", "weight": 0.6},
				{"label": "humor", "weight": 0.4},
			},
		})
	})
	defer srv.Close()

	cats, err := c.Categorize(context.Background(), "prompt", "payload")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "science", cats[0].Label)
}

func TestCategorizeReturnsErrorOnNonOKStatus(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})
	defer srv.Close()

	_, err := c.Categorize(context.Background(), "prompt", "payload")
	assert.Error(t, err)
}

func TestDiversifyReturnsDefaultOnMalformedScore(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"diversification_score": 99})
	})
	defer srv.Close()

	score, err := c.Diversify(context.Background(), "mt_author", "prompt", "payload")
	assert.Error(t, err)
	assert.Equal(t, 5, score)
}

func TestDiversifyReturnsScoreInRange(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"diversification_score": 7})
	})
	defer srv.Close()

	score, err := c.Diversify(context.Background(), "mt_author", "prompt", "payload")
	require.NoError(t, err)
	assert.Equal(t, 7, score)
}

func TestCallReturnsErrorWithoutBaseURL(t *testing.T) {
	c := New(Config{})

	_, err := c.Categorize(context.Background(), "p", "x")
	assert.Error(t, err)
}
