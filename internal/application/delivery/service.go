package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prompt-courier/internal/application/promptsource"
	"github.com/prompt-courier/internal/domain"
	"github.com/prompt-courier/internal/infrastructure/channel"
)

// dueToleranceMin is the symmetric window around a slot's local time within
// which a sweep counts as due. It absorbs trigger jitter without letting the
// morning and evening slots overlap.
const dueToleranceMin = 5

// sweepWorkers bounds per-sweep delivery concurrency.
const sweepWorkers = 8

// Outcome codes for one delivery attempt.
const (
	CodeDelivered        = "delivered"
	CodeNotDue           = "not_due"
	CodeAlreadyDelivered = "already_delivered"
	CodeContentNotFound  = "content_not_found"
	CodeConfigError      = "config_error"
	CodeSourceDown       = "source_unavailable"
	CodeSendFailed       = "send_failed"
	CodeStateError       = "state_commit_failed"
)

// Outcome is the structured result of one evaluate-and-deliver pass. Failures
// never propagate as faults; they are reported here.
type Outcome struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
	ItemID string `json:"item_id,omitempty"`
}

// UserOutcome pairs an outcome with the user it belongs to in a sweep report.
type UserOutcome struct {
	UserID string `json:"user_id"`
	Outcome
}

// ConfigStore lists the active delivery configs for a sweep.
type ConfigStore interface {
	ListActive(ctx context.Context) ([]domain.DeliveryConfig, error)
}

// StateStore reads and conditionally commits per-user delivery state.
type StateStore interface {
	Get(ctx context.Context, userID string) (*domain.DeliveryState, error)
	CommitDelivery(ctx context.Context, userID string, slot domain.Slot, deliveredAt time.Time, localDate, itemID string) error
}

// SourceResolver selects the content source implied by a config.
type SourceResolver interface {
	For(cfg *domain.DeliveryConfig) (promptsource.Source, error)
}

// GatewayRegistry selects the channel gateway implied by a config.
type GatewayRegistry interface {
	For(channelType string) (channel.Gateway, error)
}

// Service is the delivery scheduler: per user and slot it decides whether a
// prompt is due, guarantees at-most-once delivery per local calendar day, and
// orchestrates fetch, format, send and state commit.
type Service struct {
	configs  ConfigStore
	states   StateStore
	sources  SourceResolver
	gateways GatewayRegistry
}

func NewService(configs ConfigStore, states StateStore, sources SourceResolver, gateways GatewayRegistry) *Service {
	return &Service{configs: configs, states: states, sources: sources, gateways: gateways}
}

// Sweep runs EvaluateAndDeliver for every active config. Users are
// independent: failures are collected per user and never abort the sweep.
func (s *Service) Sweep(ctx context.Context, slot domain.Slot, now time.Time) ([]UserOutcome, error) {
	cfgs, err := s.configs.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}

	outcomes := make([]UserOutcome, len(cfgs))
	sem := make(chan struct{}, sweepWorkers)
	var wg sync.WaitGroup
	for i := range cfgs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			cfg := &cfgs[i]
			o := s.EvaluateAndDeliver(ctx, cfg, slot, now)
			if o.Code != CodeDelivered && o.Code != CodeNotDue && o.Code != CodeAlreadyDelivered {
				slog.Warn("delivery failed", "user_id", cfg.UserID, "slot", slot, "code", o.Code, "reason", o.Reason)
			}
			outcomes[i] = UserOutcome{UserID: cfg.UserID, Outcome: o}
		}(i)
	}
	wg.Wait()
	return outcomes, nil
}

// EvaluateAndDeliver performs the due check, the idempotency check, content
// resolution, formatting, sending and the conditional state commit for one
// user and slot.
func (s *Service) EvaluateAndDeliver(ctx context.Context, cfg *domain.DeliveryConfig, slot domain.Slot, now time.Time) Outcome {
	if cfg.ChatID == "" {
		return Outcome{Code: CodeConfigError, Reason: "channel not linked"}
	}
	loc, err := cfg.Location()
	if err != nil {
		return Outcome{Code: CodeConfigError, Reason: err.Error()}
	}

	due, err := isDue(cfg.SlotTime(slot), now, loc)
	if err != nil {
		return Outcome{Code: CodeConfigError, Reason: fmt.Sprintf("invalid slot time %q", cfg.SlotTime(slot))}
	}
	if !due {
		return Outcome{Code: CodeNotDue}
	}

	localNow := now.In(loc)
	localDate := localNow.Format("2006-01-02")

	// Idempotency: at most one send per user per slot per local calendar day.
	// Both sides of the date comparison use the config's timezone.
	state, err := s.states.Get(ctx, cfg.UserID)
	switch {
	case err == nil:
		if state.LastSlot == string(slot) && state.DeliveredAt.In(loc).Format("2006-01-02") == localDate {
			return Outcome{Code: CodeAlreadyDelivered, ItemID: state.LastItemID}
		}
	case errors.Is(err, domain.ErrNotFound):
		// first delivery for this user
	default:
		return Outcome{Code: CodeStateError, Reason: fmt.Sprintf("read delivery state: %v", err)}
	}

	src, err := s.sources.For(cfg)
	if err != nil {
		return Outcome{Code: CodeConfigError, Reason: err.Error()}
	}
	item, err := src.FetchDue(ctx, cfg, localDate, slot)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Outcome{Code: CodeContentNotFound, Reason: fmt.Sprintf("no %s prompt for %s", slot, localDate)}
		}
		return Outcome{Code: CodeSourceDown, Reason: err.Error()}
	}
	if item.Body == "" {
		// Empty content is not an idempotency record: a later trigger within
		// the window may find the content filled in and retry.
		return Outcome{Code: CodeContentNotFound, Reason: "prompt has no content"}
	}

	gw, err := s.gateways.For(cfg.Channel)
	if err != nil {
		return Outcome{Code: CodeConfigError, Reason: err.Error()}
	}

	if err := gw.Send(ctx, cfg, FormatMessage(gw, slot, localNow, item)); err != nil {
		return Outcome{Code: CodeSendFailed, Reason: err.Error()}
	}

	if err := s.states.CommitDelivery(ctx, cfg.UserID, slot, now, localDate, item.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the commit race: a concurrent sweep delivered first.
			return Outcome{Code: CodeAlreadyDelivered, ItemID: item.ID}
		}
		return Outcome{Code: CodeStateError, Reason: err.Error(), ItemID: item.ID}
	}
	return Outcome{Code: CodeDelivered, ItemID: item.ID}
}

// isDue reports whether now falls within the tolerance window of the "HH:MM"
// slot time, in the given location. The comparison wraps across local
// midnight (scheduled 23:58, now 00:02 next day is due).
func isDue(slotAt string, now time.Time, loc *time.Location) (bool, error) {
	t, err := time.Parse("15:04", slotAt)
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()
	slotMin := t.Hour()*60 + t.Minute()
	diff := nowMin - slotMin
	if diff < 0 {
		diff = -diff
	}
	if wrapped := 24*60 - diff; wrapped < diff {
		diff = wrapped
	}
	return diff <= dueToleranceMin, nil
}
