package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/domain"
)

func agentServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, completionPath, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent-1", req.AgentID)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(baseURL string) *Client {
	return New(Config{
		APIKey:        "test-key",
		CategoryAgent: "agent-1",
		BaseURL:       baseURL,
	}, nil)
}

func TestCategoryName(t *testing.T) {
	srv := agentServer(t, `{"category": "Gift cards"}`, http.StatusOK)
	defer srv.Close()

	name, err := newTestClient(srv.URL).CategoryName(context.Background(), "My Shop", []string{"Games"})
	require.NoError(t, err)
	assert.Equal(t, "Gift cards", name)
}

func TestSubcategoryFallsBackToCategoryAgent(t *testing.T) {
	srv := agentServer(t, `{"category": "Shooters"}`, http.StatusOK)
	defer srv.Close()

	name, err := newTestClient(srv.URL).SubcategoryName(context.Background(), "My Shop", "Games", nil)
	require.NoError(t, err)
	assert.Equal(t, "Shooters", name)
}

func TestAgentErrorMessageIsValidation(t *testing.T) {
	srv := agentServer(t, `{"error_message": "theme too vague"}`, http.StatusOK)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CategoryName(context.Background(), "My Shop", nil)
	assert.True(t, domain.IsValidation(err))
}

func TestHTTPFailureIsTransient(t *testing.T) {
	srv := agentServer(t, "", http.StatusBadGateway)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CategoryName(context.Background(), "My Shop", nil)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestGarbledAnswerIsTransient(t *testing.T) {
	srv := agentServer(t, `not json at all`, http.StatusOK)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CategoryName(context.Background(), "My Shop", nil)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestUnconfiguredClient(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.CategoryName(context.Background(), "My Shop", nil)
	assert.True(t, domain.IsValidation(err))
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{APIKey: "k", CategoryAgent: "a"}.Enabled())
}
