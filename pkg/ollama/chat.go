// Package ollama is a small client for Ollama's chat HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StatusError is returned when Ollama answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama chat: status %d", e.Code)
	}
	return fmt.Sprintf("ollama chat: status %d: %s", e.Code, e.Body)
}

// Transient reports whether err is worth retrying: transport failures and
// 5xx / 429 answers. Decode errors and other 4xx are not.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	var de *decodeError
	return !errors.As(err, &de)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "ollama chat decode: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// Options are the sampling options sent with every request.
type Options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  Options   `json:"options"`
}

type chatResp struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Completion is a finished, non-streamed answer.
type Completion struct {
	Model      string
	Content    string
	TokensUsed int
}

// ChatClient talks to /api/chat without streaming.
type ChatClient struct {
	baseURL string
	model   string
	opts    Options
	client  *http.Client
}

// NewChatClient creates an Ollama chat client. A zero timeout leaves the
// request bounded only by its context.
func NewChatClient(baseURL, model string, opts Options, timeout time.Duration) *ChatClient {
	return &ChatClient{
		baseURL: baseURL,
		model:   model,
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *ChatClient) Model() string { return c.model }

// Complete sends a system and user message and returns the assistant reply.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (Completion, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})

	body, err := json.Marshal(chatReq{Model: c.model, Messages: msgs, Options: c.opts})
	if err != nil {
		return Completion{}, fmt.Errorf("ollama chat: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return Completion{}, &StatusError{Code: resp.StatusCode, Body: e.Error}
	}

	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, &decodeError{err: err}
	}
	return Completion{
		Model:      out.Model,
		Content:    out.Message.Content,
		TokensUsed: out.PromptEvalCount + out.EvalCount,
	}, nil
}
