package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	httpTimeout    = 60 * time.Second
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// HTTPOptions configure an HTTP generator. Either APIKey or KeyParam with
// Secrets must be set.
type HTTPOptions struct {
	BaseURL  string
	Model    string
	APIKey   string
	KeyParam string
	Secrets  SecretGetter
	Client   *http.Client
}

// HTTP calls an OpenAI-compatible chat completions endpoint.
type HTTP struct {
	url    string
	model  string
	client *http.Client

	staticKey string
	keyParam  string
	secrets   SecretGetter
	keyOnce   sync.Once
	apiKey    string
	keyErr    error
}

// NewHTTP validates opts. A key stored in a parameter is fetched on first use.
func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("compute: model must not be empty")
	}
	h := &HTTP{
		url:       chatURL(opts.BaseURL),
		model:     opts.Model,
		client:    opts.Client,
		staticKey: strings.TrimSpace(opts.APIKey),
		keyParam:  strings.TrimSpace(opts.KeyParam),
		secrets:   opts.Secrets,
	}
	if h.client == nil {
		h.client = telegram.BuildHTTPClient(httpTimeout)
	}
	if h.staticKey == "" && (h.keyParam == "" || h.secrets == nil) {
		return nil, errors.New("compute: api key or key parameter is required")
	}
	return h, nil
}

func chatURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

func (h *HTTP) key(ctx context.Context) (string, error) {
	if h.staticKey != "" {
		return h.staticKey, nil
	}
	h.keyOnce.Do(func() {
		raw, err := h.secrets.GetParameter(ctx, h.keyParam)
		if err != nil {
			h.keyErr = err
			return
		}
		h.apiKey, h.keyErr = apiKeyFromParameter(raw)
	})
	return h.apiKey, h.keyErr
}

// Generate posts p as a two-message chat and returns the first choice.
func (h *HTTP) Generate(ctx context.Context, p Prompt) (string, error) {
	key, err := h.key(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	messages := make([]chatMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: p.User})
	body, err := json.Marshal(chatRequest{Model: h.model, Messages: messages, Temperature: p.Temperature, TopP: p.TopP})
	if err != nil {
		return "", fmt.Errorf("compute: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("compute: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	text, err := h.do(req)
	if err != nil {
		logger.Warn(ctx, logger.CompCompute, "generate",
			slog.String("status", "fail"),
			slog.String("target", h.url),
			slog.Duration("duration", logger.Took(start)),
			logger.Err(err),
		)
		return "", err
	}
	logger.Debug(ctx, logger.CompCompute, "generate",
		slog.String("status", "ok"),
		slog.String("target", h.url),
		slog.Duration("duration", logger.Took(start)),
	)
	return text, nil
}

func (h *HTTP) do(req *http.Request) (string, error) {
	res, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", statusError(res.StatusCode, raw)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("compute: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", &Error{Status: "EMPTY_RESPONSE", Message: "compute: no choices in response"}
	}
	return payload.Choices[0].Message.Content, nil
}

func statusError(code int, body []byte) error {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}
	var e errorResponse
	msg := ""
	if json.Unmarshal(body, &e) == nil {
		msg = strings.TrimSpace(e.Error.Message)
	}
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &Error{Status: "HTTP_" + strconv.Itoa(code), Message: msg}
}
