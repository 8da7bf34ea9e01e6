package inbound

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prompt-courier/internal/application/linker"
	"github.com/prompt-courier/internal/application/promptsource"
	"github.com/prompt-courier/internal/domain"
)

// Result classifies what Route did with an inbound message. The webhook
// acknowledges the channel regardless of the result.
type Result string

const (
	ResultReplySaved  Result = "reply_saved"
	ResultReplyFailed Result = "reply_failed"
	ResultNoTarget    Result = "reply_target_missing"
	ResultLinked      Result = "linked"
	ResultHelped      Result = "helped"
	ResultIgnored     Result = "ignored"
)

// ConfigStore resolves the config owning a channel identity.
type ConfigStore interface {
	GetByChatID(ctx context.Context, chatID string) (*domain.DeliveryConfig, error)
}

// StateStore reads the last-delivered record for reply correlation.
type StateStore interface {
	Get(ctx context.Context, userID string) (*domain.DeliveryState, error)
}

// SourceResolver selects the content source implied by a config.
type SourceResolver interface {
	For(cfg *domain.DeliveryConfig) (promptsource.Source, error)
}

// Messenger sends plain-text service messages back to the channel.
type Messenger interface {
	SendTo(ctx context.Context, chatID, text string) error
}

// Linker consumes link attempts from unlinked chats.
type Linker interface {
	Consume(ctx context.Context, text, chatID string, now time.Time) (linker.Result, error)
}

// Service routes an inbound message either to the verification linker (chat
// not yet bound) or to the content source the last delivered prompt came from.
type Service struct {
	configs   ConfigStore
	states    StateStore
	sources   SourceResolver
	messenger Messenger
	linker    Linker
}

func NewService(configs ConfigStore, states StateStore, sources SourceResolver, messenger Messenger, lk Linker) *Service {
	return &Service{configs: configs, states: states, sources: sources, messenger: messenger, linker: lk}
}

// Route handles one inbound text message from a channel identity. Internal
// failures are logged and surfaced to the user where useful; the caller must
// still acknowledge the channel.
func (s *Service) Route(ctx context.Context, chatID, text string, now time.Time) Result {
	cfg, err := s.configs.GetByChatID(ctx, chatID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("config lookup failed", "chat_id", chatID, "err", err)
			return ResultIgnored
		}
		res, err := s.linker.Consume(ctx, text, chatID, now)
		if err != nil {
			slog.Error("link attempt failed", "chat_id", chatID, "err", err)
			return ResultIgnored
		}
		switch res {
		case linker.ResultLinked:
			return ResultLinked
		case linker.ResultHelped:
			return ResultHelped
		}
		return ResultIgnored
	}

	state, err := s.states.Get(ctx, cfg.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.notify(ctx, chatID, "No prompt has been delivered yet, so there is nothing to reply to.")
			return ResultNoTarget
		}
		slog.Error("state lookup failed", "user_id", cfg.UserID, "err", err)
		return ResultReplyFailed
	}

	src, err := s.sources.For(cfg)
	if err != nil {
		slog.Error("source resolution failed", "user_id", cfg.UserID, "err", err)
		s.notify(ctx, chatID, "Your reply could not be saved. Check your content-source settings.")
		return ResultReplyFailed
	}

	if err := src.AppendReply(ctx, cfg, state.LastItemID, text); err != nil {
		slog.Error("reply append failed", "user_id", cfg.UserID, "item_id", state.LastItemID, "err", err)
		s.notify(ctx, chatID, "Your reply could not be saved. Please try again.")
		return ResultReplyFailed
	}

	s.notify(ctx, chatID, "Reply saved.")
	return ResultReplySaved
}

func (s *Service) notify(ctx context.Context, chatID, text string) {
	if err := s.messenger.SendTo(ctx, chatID, text); err != nil {
		slog.Warn("service message not sent", "chat_id", chatID, "err", err)
	}
}
