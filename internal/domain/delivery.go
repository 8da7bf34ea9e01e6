package domain

import (
	"fmt"
	"time"
)

// Slot is one of the two daily delivery occasions.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotEvening Slot = "evening"
)

// ParseSlot validates a slot discriminator coming from an external trigger.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotMorning, SlotEvening:
		return Slot(s), nil
	}
	return "", fmt.Errorf("unknown slot %q: %w", s, ErrBadRequest)
}

// Content source selectors.
const (
	SourceExternal = "external"
	SourceOwned    = "owned"
)

// Delivery channels.
const (
	ChannelTelegram = "telegram"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
)

// DeliveryConfig holds one user's delivery settings.
// PK: user_id. GSIs: chat_id-index, enable-index.
type DeliveryConfig struct {
	UserID            string    `json:"user_id" dynamodbav:"user_id"`
	ChatID            string    `json:"chat_id,omitempty" dynamodbav:"chat_id"` // empty until the channel is linked
	Channel           string    `json:"channel" dynamodbav:"channel"`           // "telegram" | "sms" | "email"
	ChannelCredential string    `json:"-" dynamodbav:"channel_credential"`      // per-user bot token; empty means service default
	Timezone          string    `json:"timezone" dynamodbav:"timezone"`         // IANA name
	MorningAt         string    `json:"morning_at" dynamodbav:"morning_at"`     // local "HH:MM"
	EveningAt         string    `json:"evening_at" dynamodbav:"evening_at"`     // local "HH:MM"
	Enable            int       `json:"enable" dynamodbav:"enable"`             // 1 = active, 0 = paused (numeric for GSI)
	Source            string    `json:"source" dynamodbav:"source"`             // "external" | "owned"
	NotionToken       string    `json:"-" dynamodbav:"notion_token"`
	NotionDatabaseID  string    `json:"notion_database_id,omitempty" dynamodbav:"notion_database_id"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time `json:"updated" dynamodbav:"updated_at"`
}

// SlotTime returns the configured local "HH:MM" for the given slot.
func (c *DeliveryConfig) SlotTime(slot Slot) string {
	if slot == SlotEvening {
		return c.EveningAt
	}
	return c.MorningAt
}

// Location resolves the config's IANA timezone.
func (c *DeliveryConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, ErrBadRequest)
	}
	return loc, nil
}

// DeliveryState records the most recent successful delivery for a user.
// PK: user_id. Written only by the scheduler's conditional commit; LastDate is
// the calendar day in the config's timezone, denormalized so the idempotency
// condition can compare it server-side.
type DeliveryState struct {
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	LastSlot    string    `json:"last_slot" dynamodbav:"last_slot"`
	LastDate    string    `json:"last_date" dynamodbav:"last_date"` // "2006-01-02" local
	DeliveredAt time.Time `json:"delivered_at" dynamodbav:"delivered_at"`
	LastItemID  string    `json:"last_item_id" dynamodbav:"last_item_id"`
}
