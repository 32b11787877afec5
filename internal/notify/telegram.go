// Package notify pushes game results to an operations Telegram channel.
// Notifications are a production-only side effect; other environments
// log and skip.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const telegramAPIURL = "https://api.telegram.org/bot"

// Telegram posts messages through the Bot API. Nil-safe: an unconfigured
// client is a no-op.
type Telegram struct {
	botToken    string
	chatID      string
	environment string
	httpClient  *http.Client
}

// NewTelegram constructs a client. Returns nil if not configured.
func NewTelegram(botToken, chatID, environment string) *Telegram {
	if botToken == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		botToken:    botToken,
		chatID:      chatID,
		environment: environment,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GameFinished announces a settled game.
func (t *Telegram) GameFinished(ctx context.Context, gameID, loserName string, stake float64, currency string) {
	if t == nil {
		return
	}
	text := fmt.Sprintf("Game %s finished: %s lost %.4f %s", gameID, loserName, stake, currency)
	t.send(ctx, text)
}

func (t *Telegram) send(ctx context.Context, text string) {
	if t.environment != "production" {
		log.Printf("[NOTIFY] Skipping telegram message in %s: %s", t.environment, text)
		return
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		log.Printf("[NOTIFY] Failed to marshal telegram payload: %v", err)
		return
	}

	url := telegramAPIURL + t.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[NOTIFY] Failed to build telegram request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		log.Printf("[NOTIFY] Telegram send failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[NOTIFY] Telegram API returned status %d", resp.StatusCode)
	}
}
