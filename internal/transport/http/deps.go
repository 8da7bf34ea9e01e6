package http

import (
	"github.com/prompt-courier/internal/infrastructure/channel"
	"github.com/prompt-courier/internal/infrastructure/dynamo"
	jwtinfra "github.com/prompt-courier/internal/infrastructure/jwt"
	"github.com/prompt-courier/internal/infrastructure/notion"
	"github.com/prompt-courier/internal/infrastructure/telegram"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	ConfigRepo   *dynamo.ConfigRepo
	StateRepo    *dynamo.StateRepo
	LinkCodeRepo *dynamo.LinkCodeRepo
	PromptRepo   *dynamo.PromptRepo

	NotionClient *notion.Client
	Telegram     *telegram.Gateway
	Gateways     *channel.Registry

	JWTProvider *jwtinfra.Provider
}
