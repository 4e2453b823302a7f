package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	errs "github.com/trialrag/trialrag/internal/pkg/errors"
	"github.com/trialrag/trialrag/internal/pkg/response"
	"github.com/trialrag/trialrag/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Message        *string `json:"message"`
	ConversationID string  `json:"conversation_id"`
	UserID         string  `json:"user_id"`
}

// chatEvidence is the simplified citation shape returned over the wire. The
// stored assistant message keeps the full evidence.
type chatEvidence struct {
	NCTID     string `json:"nct_id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == nil {
		response.Error(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	result, err := h.chat.Chat(c.Request.Context(), *req.Message, req.ConversationID, req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	evidence := make([]chatEvidence, 0, len(result.Evidence))
	for _, trial := range result.Evidence {
		evidence = append(evidence, chatEvidence{
			NCTID:     trial.NCTID,
			Title:     trial.Title,
			SourceURL: trial.SourceURL,
		})
	}
	response.Success(c, gin.H{
		"response":        result.Response,
		"conversation_id": result.ConversationID,
		"evidence":        evidence,
	})
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	conv, err := h.chat.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "Conversation not found")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"conversation_id": conv.ConversationID,
		"messages":        conv.Messages,
	})
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	offset := 0
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	summaries, err := h.chat.ListConversations(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user_id":       c.Param("user_id"),
		"conversations": summaries,
	})
}
