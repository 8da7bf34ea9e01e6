package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prompt-courier/internal/domain"
)

// Gateway sends messages through the Telegram Bot API. Prompts go out as
// MarkdownV2; service messages (link confirmations, reply acknowledgments)
// are sent as plain text via SendTo.
type Gateway struct {
	defaultBot *tgbotapi.BotAPI

	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI // per-user bot tokens, lazily created
}

// NewGateway builds a gateway around the service-wide bot token. The token
// may be empty when every config carries its own credential.
func NewGateway(defaultToken string) (*Gateway, error) {
	g := &Gateway{bots: make(map[string]*tgbotapi.BotAPI)}
	if defaultToken != "" {
		bot, err := newBot(defaultToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot init: %w", err)
		}
		g.defaultBot = bot
	}
	return g, nil
}

func newBot(token string) (*tgbotapi.BotAPI, error) {
	// Outbound calls must not block a sweep indefinitely.
	client := &http.Client{Timeout: 10 * time.Second}
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
}

func (g *Gateway) Type() string { return domain.ChannelTelegram }

func (g *Gateway) Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

func (g *Gateway) Send(_ context.Context, cfg *domain.DeliveryConfig, text string) error {
	bot, err := g.botFor(cfg.ChannelCredential)
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, domain.ErrBadRequest)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// SendTo delivers a plain-text service message to a raw chat id using the
// service-wide bot.
func (g *Gateway) SendTo(_ context.Context, chatID, text string) error {
	if g.defaultBot == nil {
		return fmt.Errorf("no default telegram bot configured: %w", domain.ErrUnavailable)
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", chatID, domain.ErrBadRequest)
	}
	if _, err := g.defaultBot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (g *Gateway) botFor(credential string) (*tgbotapi.BotAPI, error) {
	if credential == "" {
		if g.defaultBot == nil {
			return nil, fmt.Errorf("no telegram bot token configured: %w", domain.ErrBadRequest)
		}
		return g.defaultBot, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if bot, ok := g.bots[credential]; ok {
		return bot, nil
	}
	bot, err := newBot(credential)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	g.bots[credential] = bot
	return bot, nil
}
