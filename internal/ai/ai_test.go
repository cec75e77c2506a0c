package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestion_NormalizesAliasesAndLimits(t *testing.T) {
	raw := `{
		"title": "  ` + strings.Repeat("t", 200) + `  ",
		"summary": " printer broken ",
		"suggested_solutions": "restart it",
		"categories": ["  Hardware ", 7, "` + strings.Repeat("c", 40) + `"],
		"assignee": "IT"
	}`

	s, err := ParseSuggestion(raw)
	require.NoError(t, err)
	assert.Len(t, s.Title, 128)
	assert.Equal(t, "printer broken", s.Summary)
	assert.Equal(t, "restart it", s.SuggestedSolutions)
	assert.Equal(t, []string{"Hardware", strings.Repeat("c", 32)}, s.Categories)
	assert.Equal(t, "IT", s.SuggestedAssignee)
}

func TestParseSuggestion_Failures(t *testing.T) {
	cases := map[string]string{
		"not json":           `nope`,
		"title not string":   `{"title": 1, "summary": "s", "suggestedSolutions": "x", "categories": []}`,
		"missing summary":    `{"title": "t", "suggestedSolutions": "x", "categories": []}`,
		"categories missing": `{"title": "t", "summary": "s", "suggestedSolutions": "x"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSuggestion(raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseGroups(t *testing.T) {
	groups, err := ParseGroups(`[["a","b"],[3,4],"junk"]`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"3", "4"}}, groups)

	groups, err = ParseGroups(`{"groups": [["x","y"]]}`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y"}}, groups)

	groups, err = ParseGroups(`{}`)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func newOllamaServer(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOllamaClient(server.URL, "llama", time.Second, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func writeChat(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(api.ChatResponse{
		Model:   "llama",
		Message: api.Message{Role: "assistant", Content: content},
		Done:    true,
	}))
}

func TestOllamaClient_Draft(t *testing.T) {
	client := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama", req.Model)
		assert.JSONEq(t, `"json"`, string(req.Format))
		require.NotNil(t, req.Stream)
		assert.False(t, *req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "wifi down", req.Messages[1].Content)

		writeChat(t, w, `{"title":"Wifi outage","summary":"wifi down","suggestedSolutions":"reboot router","categories":["network"],"suggestedAssignee":"IT"}`)
	})

	s, err := client.Draft(context.Background(), "wifi down")
	require.NoError(t, err)
	assert.Equal(t, "Wifi outage", s.Title)
	assert.Equal(t, []string{"network"}, s.Categories)
	assert.Equal(t, "IT", s.SuggestedAssignee)
}

func TestOllamaClient_Recommend(t *testing.T) {
	client := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[1].Content, "ID d1: Title: VPN down.")
		writeChat(t, w, `[["d1","d2"]]`)
	})

	groups, err := client.Recommend(context.Background(), []DraftDigest{
		{ID: "d1", Title: "VPN down"},
		{ID: "d2", Title: "VPN drops"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"d1", "d2"}}, groups)
}

func TestOllamaClient_ModelMissing(t *testing.T) {
	client := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama\" not found, try pulling it first"}`))
	})

	_, err := client.Draft(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOllamaClient_EmptyMessageIsMalformed(t *testing.T) {
	client := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeChat(t, w, "")
	})

	_, err := client.Draft(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOllamaClient_RecommendSkipsSingleDraft(t *testing.T) {
	client, err := NewOllamaClient("http://127.0.0.1:1", "llama", time.Second)
	require.NoError(t, err)
	groups, err := client.Recommend(context.Background(), []DraftDigest{{ID: "a"}})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestParseSuggestion_CapsCategories(t *testing.T) {
	s, err := ParseSuggestion(`{"title":"t","summary":"s","suggestedSolutions":"x","categories":["a","b","c","d","e","f"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, s.Categories)
}

func TestLocalDrafter(t *testing.T) {
	d := NewLocalDrafter()

	s, err := d.Draft(context.Background(), "The office printer is jammed again. Please help.")
	require.NoError(t, err)
	assert.Equal(t, "The office printer is jammed again", s.Title)
	assert.Equal(t, []string{"hardware"}, s.Categories)
	assert.Equal(t, "IT", s.SuggestedAssignee)

	groups, err := d.Recommend(context.Background(), []DraftDigest{
		{ID: "1", Title: "Printer jammed"},
		{ID: "2", Title: "printer JAMMED!"},
		{ID: "3", Title: "VPN broken"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, groups)
}
