package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/prompt-courier/internal/config"
	"github.com/prompt-courier/internal/domain"
)

// The sweeper is a dumb periodic invoker: every tick it fires one sweep
// request per slot and lets the engine decide what is due. There are no
// retries here — the next tick is the retry.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	client := &http.Client{Timeout: 30 * time.Second}

	s, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("scheduler init: %v", err)
	}

	interval := time.Duration(cfg.SweepIntervalMin) * time.Minute
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			for _, slot := range []domain.Slot{domain.SlotMorning, domain.SlotEvening} {
				if err := triggerSweep(client, cfg, slot); err != nil {
					log.Printf("sweep %s failed: %v", slot, err)
				}
			}
		}),
	)
	if err != nil {
		log.Fatalf("job registration: %v", err)
	}

	s.Start()
	log.Printf("Sweeper started, firing every %s at %s", interval, cfg.SweepTargetURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := s.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	log.Println("Sweeper stopped")
}

func triggerSweep(client *http.Client, cfg *config.Config, slot domain.Slot) error {
	body, err := json.Marshal(map[string]string{"slot": string(slot)})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, cfg.SweepTargetURL+"/v1/deliveries/sweep", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.SweepTriggerToken != "" {
		req.Header.Set("X-Trigger-Token", cfg.SweepTriggerToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sweep returned %d", resp.StatusCode)
	}
	return nil
}
