// Package ai implements the client for the external completion API that
// produces the automated veterinary advice. The API speaks the common
// chat-completions dialect (DeepSeek and compatible providers).
//
// The client is deliberately thin: one bounded-time request per question, no
// retries, no streaming. Callers must treat every error as "no answer" and
// continue with their fallback path.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Advisor produces a consultation answer for a raw question. Implementations
// must be safe for concurrent use.
type Advisor interface {
	// GetAdvice returns the advice text for the question, or an error when no
	// answer could be produced within the configured bounds.
	GetAdvice(ctx context.Context, question, displayName string) (string, error)
}

// systemPrompt positions the model as a feline-focused veterinarian. Plain
// text output is requested because Telegram markdown breaks easily on model
// formatting.
const systemPrompt = `You are an experienced veterinarian with 15+ years of practice, specializing in cats.

Response rules:
- Plain text only, no markdown headers or bold markers
- Structure the answer with numbers and short paragraphs

Give a professional consultation covering:
1. Symptom analysis
2. Possible causes
3. First-aid recommendations
4. When an in-person examination is mandatory`

// ErrNoAnswer is returned when the API responds without any completion choice.
var ErrNoAnswer = errors.New("ai: empty completion")

// Config holds the connection settings for the completion API.
type Config struct {
	APIKey      string
	BaseURL     string // e.g. https://api.deepseek.com/v1
	Model       string // e.g. deepseek-chat
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client is an Advisor backed by the chat-completions HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a Client with a bounded-time HTTP transport.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// GetAdvice sends the question to the completion endpoint and returns the
// cleaned answer text.
func (c *Client) GetAdvice(ctx context.Context, question, displayName string) (string, error) {
	body := completionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Pet owner %s asks: %s", displayName, question)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log, then fail.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Msg("completion api error")
		return "", fmt.Errorf("ai: completion api status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrNoAnswer
	}

	answer := cleanAnswer(out.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrNoAnswer
	}

	log.Debug().
		Dur("latency", time.Since(start)).
		Int("total_tokens", out.Usage.TotalTokens).
		Msg("completion ok")
	return answer, nil
}

// cleanAnswer strips the markdown markers the model keeps emitting despite
// the system prompt.
func cleanAnswer(s string) string {
	s = strings.ReplaceAll(s, "###", "")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}
