package channel

import (
	"context"
	"fmt"

	"github.com/prompt-courier/internal/domain"
)

// Gateway is the adapter interface for one kind of messaging channel.
// Implement this to add new channels (Telegram, SMS, email, ...).
type Gateway interface {
	// Type returns the channel discriminator this gateway handles (e.g. "telegram").
	Type() string
	// Send delivers a formatted prompt message to the config's channel identity.
	Send(ctx context.Context, cfg *domain.DeliveryConfig, text string) error
	// Escape makes untrusted text safe for this channel's markup.
	Escape(s string) string
}

// Registry selects the gateway for a config's channel.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	m := make(map[string]Gateway, len(gws))
	for _, g := range gws {
		m[g.Type()] = g
	}
	return &Registry{gateways: m}
}

func (r *Registry) For(channelType string) (Gateway, error) {
	g, ok := r.gateways[channelType]
	if !ok {
		return nil, fmt.Errorf("no gateway for channel %q: %w", channelType, domain.ErrBadRequest)
	}
	return g, nil
}
