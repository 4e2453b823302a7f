package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/handler"
	"github.com/trialrag/trialrag/internal/llm"
	"github.com/trialrag/trialrag/internal/middleware"
	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/rag"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/internal/retrieval"
	"github.com/trialrag/trialrag/internal/service"
	"github.com/trialrag/trialrag/test/testutil"
)

type stubGenerator struct {
	resp string
}

func (s *stubGenerator) Chat(ctx context.Context, req *llm.ChatRequest) (string, error) {
	return s.resp, nil
}

// setupRouter wires the full api surface against a temp database and an
// empty index. gen may be nil to exercise the chat-disabled path.
func setupRouter(t *testing.T, gen llm.IGenerator) (http.Handler, *service.IngestService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)
	index := testutil.NewTestIndex(t)

	retriever := retrieval.NewRetriever(index)
	generator := rag.NewGenerator(gen, rag.Config{Temperature: 0.3, MaxTokens: 800, HistoryLimit: 5})
	searchService := service.NewSearchService(retriever, index)
	chatService := service.NewChatService(retriever, generator, repo.NewConversationRepo(db),
		config.ChatConfig{CacheSize: 16, CacheTTLMins: 5, HistoryLimit: 5, MaxResults: 5})
	ingestService := service.NewIngestService(repo.NewTrialRepo(db), index)

	deps := handler.RouterDeps{
		Search: handler.NewSearchHandler(searchService),
		Chat:   handler.NewChatHandler(chatService),
		Admin:  handler.NewAdminHandler(ingestService),
	}

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.CORS(nil))
	handler.RegisterRoutes(engine.Group("/api"), deps)
	return engine, ingestService
}

func seedTrials(t *testing.T, ingest *service.IngestService) {
	t.Helper()
	records := []model.TrialRecord{
		{
			"nct_id":             "NCT001",
			"title":              "Melanoma Immunotherapy Study",
			"phase":              "Phase 2",
			"gender":             "All",
			"healthy_volunteers": "No",
			"conditions":         "Melanoma",
			"description":        "A study of pembrolizumab for advanced melanoma.",
		},
		{
			"nct_id":             "NCT002",
			"title":              "Aspirin Prevention Study",
			"phase":              "Phase 3",
			"gender":             "All",
			"healthy_volunteers": "Yes",
			"conditions":         "Cardiovascular Disease",
			"description":        "Aspirin for prevention of cardiovascular events.",
		},
	}
	require.NoError(t, ingest.IndexTrials(context.Background(), records))
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}
