package llm

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	cacheTTL      = 10 * time.Minute
	cacheSweep    = 30 * time.Minute
	retryInterval = 500 * time.Millisecond
)

// OpenAIClient generates text through the OpenAI chat completion API.
// Every call gets a per-attempt timeout and at most one retry on a
// transient failure; the service is the sole source of unbounded latency
// in a turn, so both are enforced here at the boundary.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	cache   *gocache.Cache
	log     *logrus.Logger
}

// NewOpenAIClient reads the API key from OPENAI_API_KEY and builds the
// client for the given model.
func NewOpenAIClient(model string, timeout time.Duration, log *logrus.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	return NewOpenAIClientWithConfig(cfg, model, timeout, log)
}

// NewOpenAIClientWithConfig builds the client from an explicit
// configuration. Tests use this to point at a local server.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model string, timeout time.Duration, log *logrus.Logger) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		cache:   gocache.New(cacheTTL, cacheSweep),
		log:     log,
	}
}

// Generate sends the prompt as a single user message and returns the
// completion text. Identical prompts within the cache TTL are answered
// from the cache without touching the service.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	key := cacheKey(prompt, p)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(string), nil
	}

	var out string
	backoff := retry.WithMaxRetries(1, retry.NewConstant(retryInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
		if err != nil {
			if isTransient(err) {
				c.log.WithError(err).Warn("transient text-generation failure, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return ErrEmptyCompletion
		}
		out = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}

	c.cache.Set(key, out, gocache.DefaultExpiration)
	return out, nil
}

// isTransient reports whether an error is worth one more attempt:
// rate limiting, server-side failures, timeouts and network errors.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func cacheKey(prompt string, p Params) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	fmt.Fprintf(h, "|%v|%d", p.Temperature, p.MaxTokens)
	return fmt.Sprintf("%x", h.Sum(nil))
}
