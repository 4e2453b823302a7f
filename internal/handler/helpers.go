package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/logutil"
	errs "github.com/trialrag/trialrag/internal/pkg/errors"
	"github.com/trialrag/trialrag/internal/pkg/response"
)

// chatDisabledMessage is matched verbatim by the frontend, keep it stable.
const chatDisabledMessage = "Chat functionality is disabled. Please configure an LLM provider (OpenAI or Anthropic)."

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, errs.ErrInvalid):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrConflict):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, errs.ErrUnavailable):
		response.Error(c, http.StatusServiceUnavailable, chatDisabledMessage)
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

// intQuery reads a positive integer query parameter, falling back on absent
// or unparseable values.
func intQuery(c *gin.Context, name string, fallback int) int {
	value := c.Query(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// truncateText cuts text at limit characters with a trailing ellipsis.
func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
