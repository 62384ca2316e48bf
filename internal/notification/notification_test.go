package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_Disabled(t *testing.T) {
	n := NewTelegramNotifier(TelegramConfig{BotToken: "token"})
	assert.False(t, n.IsEnabled())
	assert.NoError(t, n.Send(context.Background(), &Notification{Title: "x"}))
	assert.False(t, NewManager(n).Enabled())
}

func TestSendPreflightSummary(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	m := NewManager(NewTelegramNotifier(TelegramConfig{BotToken: "123:abc", ChatID: "42", BaseURL: srv.URL}))
	require.True(t, m.Enabled())

	err := m.SendPreflightSummary(context.Background(), "run-1", false, []string{"database/postgres: connection refused"})
	require.NoError(t, err)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "Preflight failed\n\nRun run-1\n1 check(s) failed:\n- database/postgres: connection refused", got["text"])
}

func TestTelegramNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewManager(NewTelegramNotifier(TelegramConfig{BotToken: "t", ChatID: "1", BaseURL: srv.URL}))
	err := m.SendPreflightSummary(context.Background(), "run-2", true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram: telegram API returned status 401")
}
