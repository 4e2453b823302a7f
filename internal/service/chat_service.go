package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	errs "github.com/trialrag/trialrag/internal/pkg/errors"
	"github.com/trialrag/trialrag/internal/rag"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/internal/retrieval"
	"go.uber.org/zap"
)

type ChatResult struct {
	Response       string
	ConversationID string
	Evidence       []model.Evidence
}

type ChatService struct {
	retriever  *retrieval.Retriever
	generator  *rag.Generator
	convs      *repo.ConversationRepo
	cache      *expirable.LRU[string, *model.Conversation]
	maxResults int
}

func NewChatService(retriever *retrieval.Retriever, generator *rag.Generator, convs *repo.ConversationRepo, cfg config.ChatConfig) *ChatService {
	return &ChatService{
		retriever:  retriever,
		generator:  generator,
		convs:      convs,
		cache:      expirable.NewLRU[string, *model.Conversation](cfg.CacheSize, nil, time.Duration(cfg.CacheTTLMins)*time.Minute),
		maxResults: cfg.MaxResults,
	}
}

// Chat answers message inside the named conversation, creating it when
// conversationID is empty, and persists both turns.
func (s *ChatService) Chat(ctx context.Context, message, conversationID, userID string) (*ChatResult, error) {
	if !s.generator.Enabled() {
		return nil, fmt.Errorf("%w: chat provider not configured", errs.ErrUnavailable)
	}
	if userID == "" {
		userID = "anonymous"
	}
	if conversationID == "" {
		conversationID = fmt.Sprintf("conv_%d_%s", time.Now().Unix(), userID)
	}

	conv, err := s.lookup(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.Retrieve(ctx, message, s.maxResults, nil)
	if err != nil {
		return nil, err
	}
	response, evidence, err := s.generator.Answer(ctx, message, results, conv.Messages)
	if err != nil {
		return nil, err
	}

	conv.Messages = append(conv.Messages,
		model.Message{Role: "user", Content: message},
		model.Message{Role: "assistant", Content: response, Evidence: evidence},
	)
	if err := s.convs.Save(ctx, conv); err != nil {
		logutil.GetLogger(ctx).Error("failed to store conversation",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
	s.cache.Add(conversationID, conv)

	return &ChatResult{
		Response:       response,
		ConversationID: conversationID,
		Evidence:       evidence,
	}, nil
}

func (s *ChatService) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conv, ok := s.cache.Get(conversationID); ok {
		return conv, nil
	}
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(conversationID, conv)
	return conv, nil
}

func (s *ChatService) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.ConversationSummary, error) {
	return s.convs.ListByUser(ctx, userID, limit, offset)
}

func (s *ChatService) lookup(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	return &model.Conversation{
		ConversationID: conversationID,
		UserID:         userID,
		Messages:       []model.Message{},
	}, nil
}
