package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trialrag/trialrag/internal/pkg/response"
	"github.com/trialrag/trialrag/internal/service"
)

// filterParams are the query parameters the search route accepts as explicit
// metadata filters.
var filterParams = []string{"phase", "gender", "healthy_volunteers"}

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, http.StatusBadRequest, "Missing query parameter 'q'")
		return
	}
	limit := intQuery(c, "limit", 10)
	filters := map[string]string{}
	for _, param := range filterParams {
		if value := c.Query(param); value != "" {
			filters[param] = value
		}
	}

	results, err := h.search.Search(c.Request.Context(), query, limit, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"query":   query,
		"filters": filters,
		"results": results,
		"total":   len(results),
	})
}

func (h *SearchHandler) Filters(c *gin.Context) {
	response.Success(c, h.search.FilterOptions())
}

// TestQuery returns raw chunk-level hits without filtering or dedup.
func (h *SearchHandler) TestQuery(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, http.StatusBadRequest, "No query provided")
		return
	}
	limit := intQuery(c, "limit", 10)

	results, err := h.search.Query(c.Request.Context(), query, limit, nil)
	if err != nil {
		handleError(c, err)
		return
	}
	formatted := make([]gin.H, 0, len(results))
	for _, result := range results {
		formatted = append(formatted, gin.H{
			"id":          result.ID,
			"distance":    result.Distance,
			"metadata":    result.Metadata,
			"text_sample": truncateText(result.Document, 300),
		})
	}
	response.Success(c, gin.H{
		"query":         query,
		"total_results": len(formatted),
		"results":       formatted,
	})
}

func (h *SearchHandler) DebugVectorDB(c *gin.Context) {
	if h.search.Count() == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":           "No documents found in the vector database",
			"indexed":         false,
			"collection_size": 0,
		})
		return
	}
	stats := h.search.Stats(20)
	samples := make([]gin.H, 0, len(stats.Samples))
	for _, doc := range stats.Samples {
		samples = append(samples, gin.H{
			"id":          doc.ID,
			"text_sample": truncateText(doc.Text, 300),
			"metadata":    doc.Metadata,
		})
	}
	response.Success(c, gin.H{
		"indexed":          true,
		"collection_size":  stats.Size,
		"metadata_stats":   stats.ChunkTypes,
		"sample_documents": samples,
	})
}
