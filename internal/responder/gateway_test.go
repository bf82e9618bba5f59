package responder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGateway(srv.URL, "test-key")
	require.NoError(t, err)
	return g
}

func TestGatewayCall(t *testing.T) {
	t.Run("returns payload with reported usage", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"choices":[{"message":{"content":"the answer"}}],
				"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}
			}`))
		})

		raw, err := g.Call(context.Background(), Request{ResponderID: "a/model", Prompt: "q"})
		require.NoError(t, err)
		assert.Equal(t, "the answer", raw.Payload)
		assert.Equal(t, 15, raw.Tokens.Total)
		assert.Equal(t, "a/model", raw.ResponderID)
	})

	t.Run("estimates tokens when usage is absent", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"twelve chars"}}]}`))
		})

		raw, err := g.Call(context.Background(), Request{ResponderID: "a/model", Prompt: "long prompt text"})
		require.NoError(t, err)
		assert.Equal(t, EstimateTokens("twelve chars"), raw.Tokens.Completion)
		assert.Equal(t, raw.Tokens.Prompt+raw.Tokens.Completion, raw.Tokens.Total)
	})

	t.Run("joins reasoning and content channels", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"answer","reasoning":"thinking"}}],"usage":{"total_tokens":1}}`))
		})

		raw, err := g.Call(context.Background(), Request{ResponderID: "a/model", Prompt: "q"})
		require.NoError(t, err)
		assert.Equal(t, "thinking\n\n---\n\nanswer", raw.Payload)
	})

	t.Run("classifies 429 as retryable", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := g.Call(context.Background(), Request{ResponderID: "a/model", Prompt: "q"})
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
		assert.Equal(t, ErrorRateLimited, CategoryOf(err))
	})

	t.Run("classifies 5xx as retryable outage", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := g.Call(context.Background(), Request{ResponderID: "a/model", Prompt: "q"})
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
		assert.Equal(t, ErrorOutage, CategoryOf(err))
	})

	t.Run("classifies 401 as permanent", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := g.Call(context.Background(), Request{ResponderID: "a/model", Prompt: "q"})
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
		assert.Equal(t, ErrorAuthentication, CategoryOf(err))
	})

	t.Run("classifies deadline expiry as timeout", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := g.Call(ctx, Request{ResponderID: "a/model", Prompt: "q"})
		require.Error(t, err)
		assert.Equal(t, ErrorTimeout, CategoryOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("missing key fails construction", func(t *testing.T) {
		_, err := NewGateway("http://localhost", "")
		require.Error(t, err)
	})
}
