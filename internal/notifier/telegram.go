package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/model"
)

const telegramAPI = "https://api.telegram.org"

// TelegramEvents are the topics worth a chat message.
var TelegramEvents = []model.EventType{model.EventOrder, model.EventOrderFailed, model.EventExit, model.EventDailyPnL}

// TelegramNotifier sends HTML messages to one chat through the Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	// APIBase overrides the Bot API host, for tests.
	APIBase string
}

// NewTelegramNotifier creates a notifier, routing through proxyURL when set.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Warnf("telegram: ignoring bad proxy %q: %v", proxyURL, err)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

// Enabled reports whether the bot token and chat are configured.
func (t *TelegramNotifier) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

func (t *TelegramNotifier) apiBase() string {
	if t.APIBase != "" {
		return t.APIBase
	}
	return telegramAPI
}

// Send posts text to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	return t.send(context.Background(), text)
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase(), t.BotToken), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// Handler returns a bus handler that formats events and delivers them with retries.
func (t *TelegramNotifier) Handler(ctx context.Context) Handler {
	return func(evt model.Event) error {
		text := FormatEvent(evt)
		if text == "" {
			return nil
		}
		return t.SendWithRetry(ctx, text, 3)
	}
}

// SendWithRetry tries up to maxRetries+1 times, doubling the pause from one second.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var err error
	backoff := time.Second
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Warnf("telegram send failed (attempt %d/%d): %v, retrying in %v", attempt, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = t.send(ctx, text); err == nil {
			return nil
		}
	}
	return fmt.Errorf("telegram: %d attempts failed: %w", maxRetries+1, err)
}
