package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prompt-courier/internal/application/delivery"
	"github.com/prompt-courier/internal/application/inbound"
	"github.com/prompt-courier/internal/application/linker"
	"github.com/prompt-courier/internal/application/promptsource"
	"github.com/prompt-courier/internal/config"
	"github.com/prompt-courier/internal/transport/http/handler"
	appmiddleware "github.com/prompt-courier/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to public endpoints the
	// outside world can hit.
	publicRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sources := promptsource.NewResolver(
		promptsource.NewOwnedSource(deps.PromptRepo),
		promptsource.NewExternalSource(deps.NotionClient),
	)
	deliverySvc := delivery.NewService(deps.ConfigRepo, deps.StateRepo, sources, deps.Gateways)
	linkerSvc := linker.NewService(deps.LinkCodeRepo, deps.ConfigRepo, deps.PromptRepo, deps.Telegram, linker.Defaults{
		Timezone:  cfg.DefaultTimezone,
		MorningAt: cfg.DefaultMorningAt,
		EveningAt: cfg.DefaultEveningAt,
	})
	inboundSvc := inbound.NewService(deps.ConfigRepo, deps.StateRepo, sources, deps.Telegram, linkerSvc)

	healthH := handler.NewHealthHandler()
	sweepH := handler.NewSweepHandler(deliverySvc, cfg.SweepTriggerToken)
	webhookH := handler.NewWebhookHandler(inboundSvc, cfg.TelegramWebhookSecret)
	linkCodeH := handler.NewLinkCodeHandler(linkerSvc)
	configH := handler.NewConfigHandler(deps.ConfigRepo)
	promptH := handler.NewPromptHandler(deps.PromptRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(publicRL.Limit).Post("/telegram/webhook", webhookH.Receive)
		r.Post("/deliveries/sweep", sweepH.Trigger)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(publicRL.Limit).Post("/link-codes", linkCodeH.Issue)
			r.Get("/delivery-config", configH.Get)
			r.Put("/delivery-config", configH.Update)
			r.Post("/prompts", promptH.Create)
		})
	})

	return r
}
