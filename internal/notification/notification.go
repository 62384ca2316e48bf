package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyPreflightPassed NotificationType = "preflight_passed"
	NotifyPreflightFailed NotificationType = "preflight_failed"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(ctx context.Context, notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans a notification out to every enabled provider.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new notification manager
func NewManager(notifiers ...Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Enabled reports whether any provider would deliver.
func (m *Manager) Enabled() bool {
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			return true
		}
	}
	return false
}

// Send sends a notification to all enabled providers and returns the last error.
func (m *Manager) Send(ctx context.Context, notification *Notification) error {
	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(ctx, notification); err != nil {
				lastErr = fmt.Errorf("%s: %w", n.Name(), err)
			}
		}
	}
	return lastErr
}

// SendPreflightSummary reports the outcome of a preflight run.
func (m *Manager) SendPreflightSummary(ctx context.Context, runID string, passed bool, failures []string) error {
	n := &Notification{
		Type:      NotifyPreflightPassed,
		Title:     "Preflight passed",
		Timestamp: time.Now(),
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", runID)
	if passed {
		b.WriteString("All checks passed. The bot is ready to start.")
	} else {
		n.Type = NotifyPreflightFailed
		n.Title = "Preflight failed"
		fmt.Fprintf(&b, "%d check(s) failed:\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	n.Message = strings.TrimRight(b.String(), "\n")
	return m.Send(ctx, n)
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

const telegramAPIURL = "https://api.telegram.org"

// TelegramNotifier sends notifications via the Telegram Bot API
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	baseURL  string
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string

	// BaseURL overrides the Bot API endpoint, for tests.
	BaseURL string
}

// NewTelegramNotifier creates a notifier that is enabled when token and chat are set.
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	baseURL := telegramAPIURL
	if config.BaseURL != "" {
		baseURL = strings.TrimRight(config.BaseURL, "/")
	}
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.BotToken != "" && config.ChatID != "",
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(ctx context.Context, notification *Notification) error {
	if !t.enabled {
		return nil
	}

	// plain text; check details may contain Markdown control characters
	payload := map[string]interface{}{
		"chat_id": t.chatID,
		"text":    fmt.Sprintf("%s\n\n%s", notification.Title, notification.Message),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the URL embeds the bot token
		return fmt.Errorf("failed to send telegram message: %s", redact(err.Error(), t.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
