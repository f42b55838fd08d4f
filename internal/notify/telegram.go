package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whale-alerts/internal/httpjson"
	"whale-alerts/internal/render"
)

// DefaultTelegramURL is the Bot API base.
const DefaultTelegramURL = "https://api.telegram.org"

// RateLimitError is returned when the Bot API answers 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("telegram rate limited, retry after %s", e.RetryAfter)
}

// TelegramSender sends alerts with the Bot API sendMessage method.
type TelegramSender struct {
	http  *httpjson.Client
	token string
}

// NewTelegramSender creates a sender for bot token.
func NewTelegramSender(token, baseURL string, opts ...httpjson.Option) *TelegramSender {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return &TelegramSender{http: httpjson.New(baseURL, opts...), token: token}
}

// Name implements Sender.
func (s *TelegramSender) Name() string { return "telegram" }

type sendMessageRequest struct {
	ChatID                int64        `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]render.Button `json:"inline_keyboard"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send implements Sender.
func (s *TelegramSender) Send(ctx context.Context, subscriberID int64, msg render.Message) error {
	req := sendMessageRequest{
		ChatID:                subscriberID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	if len(msg.Keyboard) > 0 {
		req.ReplyMarkup = &replyMarkup{InlineKeyboard: msg.Keyboard}
	}

	var resp apiResponse
	err := s.http.Post(ctx, "/bot"+s.token+"/sendMessage", req, &resp)
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) {
			return apiError(statusErr)
		}
		return fmt.Errorf("telegram sendMessage: %w", s.redact(err))
	}
	if !resp.OK {
		return fmt.Errorf("telegram sendMessage: %s", resp.Description)
	}
	return nil
}

// redact strips the request URL, which carries the bot token, from transport
// errors.
func (s *TelegramSender) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	if s.token != "" && strings.Contains(err.Error(), s.token) {
		return errors.New(strings.ReplaceAll(err.Error(), s.token, "***"))
	}
	return err
}

func apiError(statusErr *httpjson.StatusError) error {
	var resp apiResponse
	_ = json.Unmarshal([]byte(statusErr.Body), &resp)

	if statusErr.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: time.Duration(resp.Parameters.RetryAfter) * time.Second}
	}
	if resp.Description != "" {
		return fmt.Errorf("telegram sendMessage %d: %s", statusErr.StatusCode, resp.Description)
	}
	return fmt.Errorf("telegram sendMessage: %w", statusErr)
}
