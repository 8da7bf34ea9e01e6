package promptsource

import (
	"context"
	"fmt"

	"github.com/prompt-courier/internal/domain"
)

// PromptStore is the minimal interface the owned variant requires from the
// prompts table.
type PromptStore interface {
	GetByDateSlot(ctx context.Context, userID, date string, slot domain.Slot) (*domain.Prompt, error)
	GetByID(ctx context.Context, promptID string) (*domain.Prompt, error)
	SetReply(ctx context.Context, userID, dateSlot, reply string) error
}

// OwnedSource serves prompts from the internally-managed store.
type OwnedSource struct {
	prompts PromptStore
}

func NewOwnedSource(prompts PromptStore) *OwnedSource {
	return &OwnedSource{prompts: prompts}
}

func (s *OwnedSource) FetchDue(ctx context.Context, cfg *domain.DeliveryConfig, date string, slot domain.Slot) (*Item, error) {
	p, err := s.prompts.GetByDateSlot(ctx, cfg.UserID, date, slot)
	if err != nil {
		return nil, err
	}
	return &Item{ID: p.PromptID, Topic: p.Topic, Body: p.Body}, nil
}

// AppendReply concatenates the new reply after the prompt's accumulated reply
// text. Earlier replies are never overwritten.
func (s *OwnedSource) AppendReply(ctx context.Context, _ *domain.DeliveryConfig, itemID, reply string) error {
	p, err := s.prompts.GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("resolve reply target: %w", err)
	}
	accumulated := reply
	if p.Reply != "" {
		accumulated = p.Reply + domain.ReplySeparator + reply
	}
	return s.prompts.SetReply(ctx, p.UserID, p.DateSlot, accumulated)
}
