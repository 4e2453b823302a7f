package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/pkg/dbutil"
	appErr "github.com/trialrag/trialrag/internal/pkg/errors"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Save writes the full message list for a conversation, creating the row on
// first use.
func (r *ConversationRepo) Save(ctx context.Context, conv *model.Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return err
	}
	now := time.Now().Unix()

	where := map[string]interface{}{"conversation_id": conv.ConversationID}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"id"})
	if err != nil {
		return err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	exists := rows.Next()
	if err := rows.Close(); err != nil {
		return err
	}

	if exists {
		update := map[string]interface{}{
			"messages": string(messages),
			"mtime":    now,
		}
		sqlStr, args, err = builder.BuildUpdate("conversations", where, update)
	} else {
		row := map[string]interface{}{
			"conversation_id": conv.ConversationID,
			"user_id":         conv.UserID,
			"messages":        string(messages),
			"ctime":           now,
			"mtime":           now,
		}
		sqlStr, args, err = builder.BuildInsert("conversations", []map[string]interface{}{row})
	}
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil && dbutil.IsConflict(err) {
		// Another writer created the row between the existence check and
		// the insert.
		return appErr.ErrConflict
	}
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	where := map[string]interface{}{"conversation_id": conversationID}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"conversation_id", "user_id", "messages", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var conv model.Conversation
	var messages string
	if err := rows.Scan(&conv.ConversationID, &conv.UserID, &messages, &conv.Ctime, &conv.Mtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.ConversationSummary, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "mtime desc"}
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		where["_limit"] = []uint{uint(offset), uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"conversation_id", "messages", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.ConversationSummary, 0)
	for rows.Next() {
		var item model.ConversationSummary
		var messages string
		if err := rows.Scan(&item.ConversationID, &messages, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		var parsed []model.Message
		if err := json.Unmarshal([]byte(messages), &parsed); err != nil {
			return nil, err
		}
		item.MessageCount = len(parsed)
		items = append(items, item)
	}
	return items, rows.Err()
}
