package model

type Message struct {
	Role     string     `json:"role"`
	Content  string     `json:"content"`
	Evidence []Evidence `json:"evidence,omitempty"`
}

type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Messages       []Message `json:"messages"`
	Ctime          int64     `json:"created_at"`
	Mtime          int64     `json:"updated_at"`
}

// ConversationSummary is a conversation list row without the message bodies.
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Ctime          int64  `json:"created_at"`
	Mtime          int64  `json:"updated_at"`
	MessageCount   int    `json:"message_count"`
}
