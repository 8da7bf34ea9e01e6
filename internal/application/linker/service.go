package linker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prompt-courier/internal/domain"
	"github.com/prompt-courier/internal/pkg/code"
	"github.com/prompt-courier/internal/pkg/id"
)

const (
	codeLength = 6
	codeTTL    = 10 * time.Minute
)

// Result classifies what Consume did with an inbound message.
type Result string

const (
	// ResultLinked: a code was consumed and the channel identity bound.
	ResultLinked Result = "linked"
	// ResultHelped: the message looked like a link attempt but matched
	// nothing; a help message was sent.
	ResultHelped Result = "helped"
	// ResultIgnored: the message was neither a plausible code nor a greeting.
	ResultIgnored Result = "ignored"
)

// CodeStore persists pending link codes.
type CodeStore interface {
	Put(ctx context.Context, lc *domain.LinkCode) error
	GetByCode(ctx context.Context, codeStr string) (*domain.LinkCode, error)
	LatestPending(ctx context.Context, now time.Time) (*domain.LinkCode, error)
	Consume(ctx context.Context, codeID, chatID string, now time.Time) error
}

// ConfigStore is the slice of the delivery-config repo the linker needs for
// bootstrap.
type ConfigStore interface {
	Get(ctx context.Context, userID string) (*domain.DeliveryConfig, error)
	Put(ctx context.Context, cfg *domain.DeliveryConfig) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// PromptStore answers whether a user already owns content items.
type PromptStore interface {
	HasAny(ctx context.Context, userID string) (bool, error)
}

// Messenger sends plain-text service messages back to the channel.
type Messenger interface {
	SendTo(ctx context.Context, chatID, text string) error
}

// Defaults seed a freshly bootstrapped delivery config.
type Defaults struct {
	Timezone  string
	MorningAt string
	EveningAt string
}

// Service issues short-lived link codes and consumes them from inbound
// messages, binding a channel identity to a user account.
type Service struct {
	codes     CodeStore
	configs   ConfigStore
	prompts   PromptStore
	messenger Messenger
	defaults  Defaults
}

func NewService(codes CodeStore, configs ConfigStore, prompts PromptStore, messenger Messenger, defaults Defaults) *Service {
	return &Service{codes: codes, configs: configs, prompts: prompts, messenger: messenger, defaults: defaults}
}

// IssueCode creates a pending verification for the user and returns it for
// out-of-band display.
func (s *Service) IssueCode(ctx context.Context, userID, detectedTZ string) (*domain.LinkCode, error) {
	c, err := code.NewNumeric(codeLength)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	lc := &domain.LinkCode{
		CodeID:    id.New(),
		UserID:    userID,
		Code:      c,
		Timezone:  detectedTZ,
		CreatedAt: now,
		ExpiresAt: now.Add(codeTTL).Unix(),
	}
	if err := s.codes.Put(ctx, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

// Consume inspects an inbound message for a 6-digit code or a greeting and,
// on a match, atomically consumes the pending verification (first writer
// wins) and bootstraps the user's delivery config.
func (s *Service) Consume(ctx context.Context, text, chatID string, now time.Time) (Result, error) {
	norm := strings.ToLower(strings.TrimSpace(text))

	if digits := code.Extract(norm); digits != "" {
		lc, err := s.codes.GetByCode(ctx, digits)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.help(ctx, chatID, "That code is not recognized. Generate a fresh link code in the app and send the 6 digits here.")
				return ResultHelped, nil
			}
			return ResultIgnored, err
		}
		if lc.Expired(now) {
			s.help(ctx, chatID, "That code has expired. Generate a fresh link code in the app and try again.")
			return ResultHelped, nil
		}
		return s.claim(ctx, lc, chatID, now)
	}

	if containsGreeting(norm) {
		// Fallback: bind the most recently issued pending code, whoever
		// issued it. Codes are single-use and expire in minutes, which
		// bounds what a stray greeting can claim.
		lc, err := s.codes.LatestPending(ctx, now)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.help(ctx, chatID, "No link is pending. Generate a link code in the app, then send the 6 digits here.")
				return ResultHelped, nil
			}
			return ResultIgnored, err
		}
		return s.claim(ctx, lc, chatID, now)
	}

	return ResultIgnored, nil
}

// claim consumes the code, bootstraps the config, and confirms to the user.
func (s *Service) claim(ctx context.Context, lc *domain.LinkCode, chatID string, now time.Time) (Result, error) {
	if err := s.codes.Consume(ctx, lc.CodeID, chatID, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Someone else won the race, or the code expired between the read
			// and the write. Treated as no-match.
			s.help(ctx, chatID, "That code has already been used. Generate a fresh link code in the app and try again.")
			return ResultHelped, nil
		}
		return ResultIgnored, err
	}

	if err := s.bootstrap(ctx, lc, chatID, now); err != nil {
		return ResultIgnored, fmt.Errorf("bootstrap delivery config: %w", err)
	}

	if err := s.messenger.SendTo(ctx, chatID, "You are linked. Daily prompts will arrive in this chat."); err != nil {
		slog.Warn("link confirmation not sent", "chat_id", chatID, "err", err)
	}
	return ResultLinked, nil
}

func (s *Service) bootstrap(ctx context.Context, lc *domain.LinkCode, chatID string, now time.Time) error {
	cfg, err := s.configs.Get(ctx, lc.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		tz := lc.Timezone
		if tz == "" {
			tz = s.defaults.Timezone
		}
		return s.configs.Put(ctx, &domain.DeliveryConfig{
			UserID:    lc.UserID,
			ChatID:    chatID,
			Channel:   domain.ChannelTelegram,
			Timezone:  tz,
			MorningAt: s.defaults.MorningAt,
			EveningAt: s.defaults.EveningAt,
			Source:    domain.SourceOwned,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		})
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"chat_id": chatID,
		"channel": domain.ChannelTelegram,
	}
	hasOwned, err := s.prompts.HasAny(ctx, cfg.UserID)
	if err != nil {
		return err
	}
	if hasOwned {
		updates["enable"] = 1
		updates["source"] = domain.SourceOwned
	}
	return s.configs.Update(ctx, cfg.UserID, updates)
}

func (s *Service) help(ctx context.Context, chatID, text string) {
	if err := s.messenger.SendTo(ctx, chatID, text); err != nil {
		slog.Warn("help message not sent", "chat_id", chatID, "err", err)
	}
}

func containsGreeting(norm string) bool {
	for _, w := range strings.Fields(norm) {
		switch strings.Trim(w, ".,!?") {
		case "hello", "hi", "hey":
			return true
		}
	}
	return false
}
