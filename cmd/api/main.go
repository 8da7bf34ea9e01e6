package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prompt-courier/internal/config"
	"github.com/prompt-courier/internal/infrastructure/channel"
	"github.com/prompt-courier/internal/infrastructure/dynamo"
	jwtinfra "github.com/prompt-courier/internal/infrastructure/jwt"
	"github.com/prompt-courier/internal/infrastructure/notion"
	"github.com/prompt-courier/internal/infrastructure/smtp"
	snsinfra "github.com/prompt-courier/internal/infrastructure/sns"
	"github.com/prompt-courier/internal/infrastructure/telegram"
	transporthttp "github.com/prompt-courier/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Telegram gateway (required: it is both the primary delivery channel
	// and the service-message path for linking and replies).
	tgGateway, err := telegram.NewGateway(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("telegram gateway: %v", err)
	}

	gateways := []channel.Gateway{tgGateway, smtp.NewGateway(cfg)}

	// SNS SMS gateway (optional — graceful fallback).
	if smsGateway, err := snsinfra.NewGateway(cfg); err == nil {
		gateways = append(gateways, smsGateway)
	} else {
		log.Printf("WARN: SNS gateway not available: %v", err)
	}

	deps := &transporthttp.Deps{
		ConfigRepo:   dynamo.NewConfigRepo(dynamoClient, cfg.DynamoTables.DeliveryConfigs),
		StateRepo:    dynamo.NewStateRepo(dynamoClient, cfg.DynamoTables.DeliveryStates),
		LinkCodeRepo: dynamo.NewLinkCodeRepo(dynamoClient, cfg.DynamoTables.LinkCodes),
		PromptRepo:   dynamo.NewPromptRepo(dynamoClient, cfg.DynamoTables.Prompts),
		NotionClient: notion.NewClient(cfg.NotionBaseURL),
		Telegram:     tgGateway,
		Gateways:     channel.NewRegistry(gateways...),
		JWTProvider:  jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
