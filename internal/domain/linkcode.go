package domain

import "time"

// LinkCode is a short-lived one-time code that binds a messaging-channel
// identity to a user account.
// PK: code_id, GSI: code-index. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type LinkCode struct {
	CodeID     string     `json:"code_id" dynamodbav:"code_id"`
	UserID     string     `json:"user_id" dynamodbav:"user_id"`
	Code       string     `json:"code" dynamodbav:"code"` // 6-digit numeric
	Timezone   string     `json:"timezone,omitempty" dynamodbav:"timezone"`
	CreatedAt  time.Time  `json:"created" dynamodbav:"created_at"`
	ExpiresAt  int64      `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	ConsumedAt *time.Time `json:"consumed_at,omitempty" dynamodbav:"consumed_at,omitempty"`
	ChatID     string     `json:"chat_id,omitempty" dynamodbav:"chat_id"` // set on consumption
}

// Expired reports whether the code is past its expiry at the given instant.
func (l *LinkCode) Expired(now time.Time) bool {
	return l.ExpiresAt < now.Unix()
}
