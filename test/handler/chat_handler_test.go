package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatRoute(t *testing.T) {
	router, ingest := setupRouter(t, &stubGenerator{resp: "NCT001 looks relevant."})
	seedTrials(t, ingest)

	resp := doRequest(t, router, http.MethodPost, "/api/chat", map[string]string{"user_id": "u1"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error": "Missing required fields"}`, resp.Body.String())

	resp = doRequest(t, router, http.MethodPost, "/api/chat", map[string]string{"message": "melanoma treatment options"})
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, "NCT001 looks relevant.", body["response"])
	require.Regexp(t, `^conv_\d+_anonymous$`, body["conversation_id"])

	evidence := body["evidence"].([]interface{})
	require.NotEmpty(t, evidence)
	first := evidence[0].(map[string]interface{})
	require.Equal(t, "NCT001", first["nct_id"])
	require.Equal(t, "Melanoma Immunotherapy Study", first["title"])
	require.Contains(t, first, "source_url")
	// The wire shape trims evidence down to three fields.
	require.Len(t, first, 3)
}

func TestChatRouteDisabled(t *testing.T) {
	router, _ := setupRouter(t, nil)

	resp := doRequest(t, router, http.MethodPost, "/api/chat", map[string]string{"message": "anything"})
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.JSONEq(t, `{"error": "Chat functionality is disabled. Please configure an LLM provider (OpenAI or Anthropic)."}`, resp.Body.String())
}

func TestConversationRoutes(t *testing.T) {
	router, ingest := setupRouter(t, &stubGenerator{resp: "Aspirin may help."})
	seedTrials(t, ingest)

	resp := doRequest(t, router, http.MethodGet, "/api/conversations/conv_missing", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.JSONEq(t, `{"error": "Conversation not found"}`, resp.Body.String())

	resp = doRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"message": "aspirin prevention trials",
		"user_id": "u1",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	convID := decodeBody(t, resp)["conversation_id"].(string)

	resp = doRequest(t, router, http.MethodGet, "/api/conversations/"+convID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, convID, body["conversation_id"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	userMsg := messages[0].(map[string]interface{})
	require.Equal(t, "user", userMsg["role"])
	require.Equal(t, "aspirin prevention trials", userMsg["content"])
	assistantMsg := messages[1].(map[string]interface{})
	require.Equal(t, "assistant", assistantMsg["role"])
	require.NotEmpty(t, assistantMsg["evidence"])

	resp = doRequest(t, router, http.MethodGet, "/api/users/u1/conversations", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body = decodeBody(t, resp)
	require.Equal(t, "u1", body["user_id"])

	conversations := body["conversations"].([]interface{})
	require.Len(t, conversations, 1)
	summary := conversations[0].(map[string]interface{})
	require.Equal(t, convID, summary["conversation_id"])
	require.Equal(t, float64(2), summary["message_count"])
}
