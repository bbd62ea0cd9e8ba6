package store

import "time"

// Message is one recorded conversation turn. Rows are append-only; ordering
// by ID defines the conversation.
type Message struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"index:idx_messages_chat"`
	Role      string
	Content   string
	CreatedAt time.Time
}

type ChatMeta struct {
	ChatID     int64 `gorm:"primaryKey"`
	ClientName string
	Status     string `gorm:"default:active"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DecisionLog is the offline audit record for one policy decision. Stats is
// the serialized dialog.Stats snapshot the decision was computed from.
type DecisionLog struct {
	ID          uint   `gorm:"primaryKey"`
	TraceID     string `gorm:"index"`
	ChatID      int64  `gorm:"index:idx_decisions_chat"`
	UserMessage string
	BotResponse string
	Action      string
	Reason      string
	ModelMode   string
	Stats       string
	CreatedAt   time.Time
}

type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// Feedback is an expert rating of a bot reply, with the surrounding context
// snapshot serialized as JSON.
type Feedback struct {
	ID         uint  `gorm:"primaryKey"`
	ChatID     int64 `gorm:"index"`
	UserID     int64
	ExpertName string
	Rating     string
	Comment    string
	Context    string
	CreatedAt  time.Time
}
