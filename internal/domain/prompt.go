package domain

import "time"

// ReplySeparator joins successive replies on an owned prompt. Replies are
// accumulated, never overwritten.
const ReplySeparator = "\n\n---\n\n"

// Prompt is an internally-owned content item: one prompt per user/date/slot.
// PK: user_id, SK: date_slot ("2006-01-02#morning"). GSI: prompt_id-index.
type Prompt struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	DateSlot  string    `json:"date_slot" dynamodbav:"date_slot"`
	PromptID  string    `json:"prompt_id" dynamodbav:"prompt_id"`
	Topic     string    `json:"topic" dynamodbav:"topic"`
	Body      string    `json:"body" dynamodbav:"body"`
	Reply     string    `json:"reply,omitempty" dynamodbav:"reply"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// DateSlotKey builds the sort key for a local date and slot.
func DateSlotKey(date string, slot Slot) string {
	return date + "#" + string(slot)
}

// CreatePromptRequest is the ingest payload for an owned prompt.
type CreatePromptRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Slot  string `json:"slot" validate:"required,oneof=morning evening"`
	Topic string `json:"topic" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

// UpdateDeliveryConfigRequest carries partial delivery-config updates.
type UpdateDeliveryConfigRequest struct {
	Timezone         *string `json:"timezone" validate:"omitempty,timezone"`
	MorningAt        *string `json:"morning_at" validate:"omitempty,datetime=15:04"`
	EveningAt        *string `json:"evening_at" validate:"omitempty,datetime=15:04"`
	Channel          *string `json:"channel" validate:"omitempty,oneof=telegram sms email"`
	Source           *string `json:"source" validate:"omitempty,oneof=external owned"`
	NotionToken      *string `json:"notion_token"`
	NotionDatabaseID *string `json:"notion_database_id"`
	Enable           *int    `json:"enable" validate:"omitempty,oneof=0 1"`
}
