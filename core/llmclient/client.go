// Package llmclient is the one place this service speaks to the remote chat
// and embedding endpoints named in the external interfaces: OpenAI-compatible
// HTTP, JSON in and out, against arbitrary self-hosted base URLs.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/archivist-dev/archivist/model"
)

// Config configures both the chat and embedding collaborators. Chat and
// embeddings frequently point at different providers/models, so each has
// its own base URL, key and model.
type Config struct {
	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	Timeout time.Duration
}

// ConfigFromEnv loads ARCHIVIST_CHAT_*/ARCHIVIST_EMBEDDING_* from the
// environment (via .env when present), applying the documented defaults.
// Credentials are not validated here; a missing key only becomes a
// ConfigError at the point the client is asked to make its first real call.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	return Config{
		ChatBaseURL: envOrDefault("ARCHIVIST_CHAT_BASE_URL", "https://api.openai.com/v1"),
		ChatAPIKey:  os.Getenv("ARCHIVIST_CHAT_API_KEY"),
		ChatModel:   envOrDefault("ARCHIVIST_CHAT_MODEL", "gpt-4o-mini"),

		EmbeddingBaseURL: envOrDefault("ARCHIVIST_EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:  os.Getenv("ARCHIVIST_EMBEDDING_API_KEY"),
		EmbeddingModel:   envOrDefault("ARCHIVIST_EMBEDDING_MODEL", "text-embedding-3-small"),

		Timeout: 30 * time.Second,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Message is one OpenAI-compatible chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the remote collaborator for both the Summarizer (chat) and the
// Embedder (embeddings). Both endpoints share one retry/backoff discipline.
type Client struct {
	cfg        Config
	httpClient *http.Client
	maxRetries int
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 5,
	}
}

// EmbeddingModel exposes the configured model identifier so callers can
// stamp it onto model.ChunkEmbedding.Model without re-reading config.
func (c *Client) EmbeddingModel() string { return c.cfg.EmbeddingModel }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends messages to the configured chat endpoint and returns the first
// choice's content. A missing chat API key is a model.ConfigError; every
// other failure is a model.RemoteServiceError.
func (c *Client) Chat(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	if c.cfg.ChatAPIKey == "" {
		return "", model.NewConfigError(fmt.Errorf("missing chat API key"))
	}

	reqBody := chatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	payload, err := c.doWithRetry(ctx, c.cfg.ChatBaseURL+"/chat/completions", c.cfg.ChatAPIKey, reqBody)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", model.NewRemoteServiceError(fmt.Errorf("decoding chat response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", model.NewRemoteServiceError(fmt.Errorf("chat response contained no choices"))
	}
	return out.Choices[0].Message.Content, nil
}

type embeddingsRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// EmbedRemote sends one batch of texts to the embeddings endpoint in a
// single request and returns vectors in the same order as texts,
// regardless of the order the endpoint's "index" fields come back in.
// Batch-size discipline (≤100 per call) is the embedder's responsibility,
// not this client's.
func (c *Client) EmbedRemote(ctx context.Context, texts []string) ([][]float32, error) {
	if c.cfg.EmbeddingAPIKey == "" {
		return nil, model.NewConfigError(fmt.Errorf("missing embedding API key"))
	}
	if len(texts) == 0 {
		return nil, nil
	}

	var input interface{} = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	reqBody := embeddingsRequest{Model: c.cfg.EmbeddingModel, Input: input}

	payload, err := c.doWithRetry(ctx, c.cfg.EmbeddingBaseURL+"/embeddings", c.cfg.EmbeddingAPIKey, reqBody)
	if err != nil {
		return nil, err
	}

	var out embeddingsResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, model.NewRemoteServiceError(fmt.Errorf("decoding embeddings response: %w", err))
	}
	if len(out.Data) != len(texts) {
		return nil, model.NewRemoteServiceError(fmt.Errorf("embeddings response returned %d vectors for %d inputs", len(out.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, model.NewRemoteServiceError(fmt.Errorf("embeddings response index %d out of range", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// doWithRetry POSTs a JSON body, retrying on transport errors and 429/5xx
// responses with exponential backoff, honouring a Retry-After header when
// present.
func (c *Client) doWithRetry(ctx context.Context, url, apiKey string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, model.NewRemoteServiceError(fmt.Errorf("encoding request: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, model.NewRemoteServiceError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, model.NewRemoteServiceError(ctx.Err())
			}
			if attempt < c.maxRetries {
				sleep(ctx, retryDelay(attempt))
				continue
			}
			break
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelayFromHeader(resp.Header.Get("Retry-After"), attempt)
			resp.Body.Close()
			lastErr = fmt.Errorf("remote endpoint returned %s", resp.Status)
			if attempt < c.maxRetries {
				sleep(ctx, delay)
				continue
			}
			break
		}

		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, model.NewRemoteServiceError(fmt.Errorf("remote endpoint returned %s", resp.Status))
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, model.NewRemoteServiceError(fmt.Errorf("reading response body: %w", err))
		}
		return payload, nil
	}

	return nil, model.NewRemoteServiceError(fmt.Errorf("remote call failed after %d attempts: %w", c.maxRetries+1, lastErr))
}

func retryDelayFromHeader(retryAfter string, attempt int) time.Duration {
	if retryAfter == "" {
		return retryDelay(attempt)
	}
	if secs, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(secs) * time.Second
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
