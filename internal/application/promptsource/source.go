package promptsource

import (
	"context"
	"fmt"

	"github.com/prompt-courier/internal/domain"
)

// Item is one due prompt resolved from a content source. ID is opaque: an
// owned-record id or an external document id, depending on the variant.
type Item struct {
	ID    string
	Topic string
	Body  string
}

// Source is the capability both content-source variants implement: fetch the
// prompt due for a local date and slot, and write a reply back to the item it
// came from.
type Source interface {
	FetchDue(ctx context.Context, cfg *domain.DeliveryConfig, date string, slot domain.Slot) (*Item, error)
	AppendReply(ctx context.Context, cfg *domain.DeliveryConfig, itemID, reply string) error
}

// Resolver selects the variant implied by a config's source selector, so the
// scheduler and reply router stay source-agnostic.
type Resolver struct {
	owned    Source
	external Source
}

func NewResolver(owned, external Source) *Resolver {
	return &Resolver{owned: owned, external: external}
}

func (r *Resolver) For(cfg *domain.DeliveryConfig) (Source, error) {
	switch cfg.Source {
	case domain.SourceOwned:
		return r.owned, nil
	case domain.SourceExternal:
		if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
			return nil, fmt.Errorf("external source selected but credentials missing: %w", domain.ErrBadRequest)
		}
		return r.external, nil
	}
	return nil, fmt.Errorf("unknown content source %q: %w", cfg.Source, domain.ErrBadRequest)
}
