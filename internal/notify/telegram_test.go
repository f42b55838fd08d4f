package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/render"
)

func testMessage() render.Message {
	return render.Message{
		Text:     "🟢 <b>BUY BONK</b>",
		Keyboard: [][]render.Button{{{Text: "Dexscreener", URL: "https://dexscreener.com/solana/mint"}}},
	}
}

func TestTelegramSender_Send(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	err := NewTelegramSender("TOKEN", server.URL).Send(context.Background(), -1001, testMessage())
	require.NoError(t, err)

	assert.Equal(t, int64(-1001), got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
	require.NotNil(t, got.ReplyMarkup)
	assert.Equal(t, "Dexscreener", got.ReplyMarkup.InlineKeyboard[0][0].Text)
}

func TestTelegramSender_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 17","parameters":{"retry_after":17}}`))
	}))
	defer server.Close()

	err := NewTelegramSender("TOKEN", server.URL).Send(context.Background(), 1, testMessage())

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 17*time.Second, rl.RetryAfter)
}

func TestTelegramSender_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	err := NewTelegramSender("TOKEN", server.URL).Send(context.Background(), 1, testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked")
}

func TestTelegramSender_NotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	err := NewTelegramSender("TOKEN", server.URL).Send(context.Background(), 1, testMessage())
	assert.ErrorContains(t, err, "chat not found")
}

func TestTelegramSender_TransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	const token = "123456:SECRET-BOT-TOKEN"
	err := NewTelegramSender(token, baseURL).Send(context.Background(), 1, testMessage())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.Contains(t, err.Error(), "telegram sendMessage")
}

func TestTelegramSender_CanceledKeepsCause(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewTelegramSender("TOKEN", server.URL).Send(ctx, 1, testMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "TOKEN")
}
