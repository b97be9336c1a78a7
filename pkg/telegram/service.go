package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

type ServiceInterface interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error
}

// Service - клиент Bot API, только отправка сообщений.
type Service struct {
	botToken   string
	apiBase    string
	httpClient *http.Client
}

func NewService(botToken string) *Service {
	return &Service{
		botToken:   botToken,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithAPIBase подменяет адрес Bot API (тесты, локальный bot-api сервер).
func (s *Service) WithAPIBase(base string) *Service {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type MessageOption func(*sendMessageRequest)

func WithMarkdownV2() MessageOption {
	return func(req *sendMessageRequest) {
		req.ParseMode = "MarkdownV2"
	}
}

func WithHTML() MessageOption {
	return func(req *sendMessageRequest) {
		req.ParseMode = "HTML"
	}
}

// SendMessage отправляет простой текст, экранируя его для MarkdownV2.
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string) error {
	return s.SendMessageEx(ctx, chatID, EscapeTextForMarkdownV2(text), WithMarkdownV2())
}

func (s *Service) SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error {
	req := &sendMessageRequest{ChatID: chatID, Text: text}
	for _, opt := range options {
		opt(req)
	}
	return s.sendRequest(ctx, "sendMessage", req)
}

// APIError - ответ Bot API с ok=false. RetryAfter заполняется при 429.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API ошибка (%s): код %d, описание: %s", e.Method, e.Code, e.Description)
}

type responseParameters struct {
	RetryAfter int `json:"retry_after"`
}

type apiResponse struct {
	OK          bool                `json:"ok"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

func (s *Service) sendRequest(ctx context.Context, method string, payload interface{}) error {
	if s.botToken == "" {
		return fmt.Errorf("токен Telegram-бота не установлен")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot%s/%s", s.apiBase, s.botToken, method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса в Telegram: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return fmt.Errorf("ошибка декодирования ответа Telegram (HTTP %d): %w", resp.StatusCode, err)
	}
	if result.OK {
		return nil
	}
	apiErr := &APIError{Method: method, Code: result.ErrorCode, Description: result.Description}
	if result.Parameters != nil {
		apiErr.RetryAfter = time.Duration(result.Parameters.RetryAfter) * time.Second
	}
	return apiErr
}

func EscapeTextForMarkdownV2(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
		"(", "\\(", ")", "\\)",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+",
		"-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}
