package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unismart/internal/identity"
	"unismart/internal/logger"
	"unismart/internal/metrics"
)

// wireRequest is the part of a generateContent request body the tests inspect.
type wireRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
		ResponseSchema   *struct {
			Type string `json:"type"`
		} `json:"responseSchema"`
		ThinkingConfig *struct {
			ThinkingBudget *int `json:"thinkingBudget"`
		} `json:"thinkingConfig"`
	} `json:"generationConfig"`
}

func reply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
		}},
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{
		BaseURL:     srv.URL + "/",
		APIKey:      "test-key",
		AdviceModel: "flash",
		RosterModel: "pro",
		HTTP:        srv.Client(),
	})
	require.NoError(t, err)
	c.Metrics = metrics.NewMock()
	c.Log = logger.Discard()
	return c
}

func disabledClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{AdviceModel: "flash", RosterModel: "pro"})
	require.NoError(t, err)
	return c
}

func TestAdvice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/flash:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "absence percentage of 28% in these subjects: CS301")
		require.NotNil(t, req.GenerationConfig.ThinkingConfig)
		require.NotNil(t, req.GenerationConfig.ThinkingConfig.ThinkingBudget)
		assert.Equal(t, 0, *req.GenerationConfig.ThinkingConfig.ThinkingBudget)

		reply(w, "- Attend every lecture")
	})

	assert.True(t, c.Enabled())
	assert.Equal(t, "- Attend every lecture", c.Advice(context.Background(), 28, "CS301"))
}

func TestAdviceFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	})
	assert.Equal(t, FallbackAdvice, c.Advice(context.Background(), 10, "AI202"))

	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})
	assert.Equal(t, FallbackAdvice, empty.Advice(context.Background(), 10, "AI202"))

	disabled := disabledClient(t)
	assert.False(t, disabled.Enabled())
	assert.Equal(t, FallbackAdvice, disabled.Advice(context.Background(), 10, "AI202"))
}

func TestParseRoster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/pro:generateContent"), r.URL.Path)
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		require.NotNil(t, req.GenerationConfig.ResponseSchema)
		assert.Equal(t, "ARRAY", req.GenerationConfig.ResponseSchema.Type)

		reply(w, `[{"name":"Ali Hassan","email":"ali@unismart.edu","username":"ali","password":"tmp1","role":"TA"}]`)
	})

	users := c.ParseRoster(context.Background(), "Ali Hassan - TA")
	require.Len(t, users, 1)
	assert.Equal(t, identity.NewUser{Name: "Ali Hassan", Email: "ali@unismart.edu", Username: "ali", Password: "tmp1", Role: identity.RoleTA}, users[0])
}

func TestParseRosterFailuresReturnNil(t *testing.T) {
	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, "not json")
	})
	assert.Nil(t, bad.ParseRoster(context.Background(), "x"))

	assert.Nil(t, disabledClient(t).ParseRoster(context.Background(), "x"))
}
