package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchRoute(t *testing.T) {
	router, ingest := setupRouter(t, nil)
	seedTrials(t, ingest)

	resp := doRequest(t, router, http.MethodGet, "/api/trials/search", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error": "Missing query parameter 'q'"}`, resp.Body.String())

	resp = doRequest(t, router, http.MethodGet, "/api/trials/search?q=melanoma+immunotherapy", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, "melanoma immunotherapy", body["query"])
	require.Equal(t, map[string]interface{}{}, body["filters"])

	results := body["results"].([]interface{})
	require.NotEmpty(t, results)
	require.Equal(t, float64(len(results)), body["total"])
	first := results[0].(map[string]interface{})
	require.Equal(t, "NCT001", first["nct_id"])
	require.Equal(t, "Melanoma Immunotherapy Study", first["title"])
	require.Contains(t, first, "relevance_score")
	require.Contains(t, first, "source_url")
}

func TestSearchRouteFilters(t *testing.T) {
	router, ingest := setupRouter(t, nil)
	seedTrials(t, ingest)

	resp := doRequest(t, router, http.MethodGet, "/api/trials/search?q=study&phase=Phase+3", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, map[string]interface{}{"phase": "Phase 3"}, body["filters"])

	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	require.Equal(t, "NCT002", first["nct_id"])
}

func TestFiltersRoute(t *testing.T) {
	router, ingest := setupRouter(t, nil)
	seedTrials(t, ingest)

	resp := doRequest(t, router, http.MethodGet, "/api/trials/filters", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.ElementsMatch(t, []interface{}{"Phase 2", "Phase 3"}, body["phases"])
	require.ElementsMatch(t, []interface{}{"All"}, body["genders"])
	require.ElementsMatch(t, []interface{}{"No", "Yes"}, body["healthy_volunteers"])
}

func TestTestQueryRoute(t *testing.T) {
	router, ingest := setupRouter(t, nil)
	seedTrials(t, ingest)

	resp := doRequest(t, router, http.MethodGet, "/api/debug/test_query", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error": "No query provided"}`, resp.Body.String())

	resp = doRequest(t, router, http.MethodGet, "/api/debug/test_query?q=aspirin&limit=3", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, "aspirin", body["query"])

	results := body["results"].([]interface{})
	require.NotEmpty(t, results)
	require.Equal(t, float64(len(results)), body["total_results"])
	first := results[0].(map[string]interface{})
	require.Contains(t, first, "id")
	require.Contains(t, first, "distance")
	require.Contains(t, first, "text_sample")
	meta := first["metadata"].(map[string]interface{})
	require.Equal(t, "NCT002", meta["nct_id"])
}

func TestDebugVectorDBRoute(t *testing.T) {
	router, ingest := setupRouter(t, nil)

	resp := doRequest(t, router, http.MethodGet, "/api/debug/vector_db", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.JSONEq(t, `{"error": "No documents found in the vector database", "indexed": false, "collection_size": 0}`, resp.Body.String())

	seedTrials(t, ingest)

	resp = doRequest(t, router, http.MethodGet, "/api/debug/vector_db", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, true, body["indexed"])
	require.Equal(t, float64(4), body["collection_size"])

	chunkTypes := body["metadata_stats"].(map[string]interface{})
	require.Equal(t, float64(2), chunkTypes["overview"])
	require.Equal(t, float64(2), chunkTypes["description"])

	samples := body["sample_documents"].([]interface{})
	require.Len(t, samples, 4)
	sample := samples[0].(map[string]interface{})
	require.Contains(t, sample, "id")
	require.Contains(t, sample, "text_sample")
	require.Contains(t, sample, "metadata")
}
