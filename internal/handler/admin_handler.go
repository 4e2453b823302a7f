package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trialrag/trialrag/internal/pkg/response"
	"github.com/trialrag/trialrag/internal/service"
)

type AdminHandler struct {
	ingest *service.IngestService
}

func NewAdminHandler(ingest *service.IngestService) *AdminHandler {
	return &AdminHandler{ingest: ingest}
}

func (h *AdminHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok", "message": "Clinical Trials API is running"})
}

type loadTrialsRequest struct {
	FilePath *string `json:"file_path"`
	FileType string  `json:"file_type"`
}

func (h *AdminHandler) LoadTrials(c *gin.Context) {
	var req loadTrialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FilePath == nil {
		response.Error(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	fileType := req.FileType
	if fileType == "" {
		fileType = "json"
	}
	switch strings.ToLower(fileType) {
	case "json", "csv":
	default:
		response.Error(c, http.StatusBadRequest, "Unsupported file type")
		return
	}

	loaded, err := h.ingest.LoadFile(c.Request.Context(), *req.FilePath, fileType)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Loaded and indexed %d clinical trials", loaded),
	})
}
