package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/pkg/circuitbreaker"
	pkgconfig "curatorhub/pkg/config"
	"curatorhub/pkg/metrics"
	"curatorhub/pkg/trace"
	"curatorhub/pkg/util"
)

var ErrProviderUnavailable = errors.New("ai provider unavailable")

const (
	endpointChat   = "/chat/completions"
	endpointImages = "/images/generations"

	// FallbackProvider marks drafts produced without the provider.
	FallbackProvider = "fallback"
)

type TextRequest struct {
	Kind  model.ContentKind
	Input PromptInput
}

type TextResult struct {
	Text     string
	Prompt   string
	Provider string
	Model    string
	Fallback bool
}

type ImageRequest struct {
	Input PromptInput
	Size  string // e.g. 1024x1024
}

type ImageResult struct {
	URL      string
	Prompt   string
	Provider string
	Model    string
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	provider   string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg pkgconfig.AIConfig, logger *zap.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		provider:   providerName(cfg.BaseURL),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
	}
	c.cb = circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    cfg.MaxFailures,
		SuccessThreshold:    2,
		Timeout:             cfg.ResetTimeout(),
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("AI circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

func providerName(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateText returns a provider draft, or a deterministic fallback draft
// with Fallback set when the provider fails. It never returns an error for
// provider failures.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	prompt := BuildPrompt(req.Kind, req.Input)

	body := chatRequest{
		Model: c.textModel,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	}

	var resp chatResponse
	err := c.call(ctx, endpointChat, body, &resp)
	if err == nil && (len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "") {
		err = errors.New("empty completion")
	}
	if err != nil {
		c.logger.Warn("AI text generation failed, using fallback",
			zap.String("kind", string(req.Kind)),
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.Error(err),
		)
		return &TextResult{
			Text:     FallbackText(req.Kind, req.Input),
			Prompt:   prompt.User,
			Provider: FallbackProvider,
			Model:    "template",
			Fallback: true,
		}, nil
	}

	return &TextResult{
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Prompt:   prompt.User,
		Provider: c.provider,
		Model:    c.textModel,
	}, nil
}

// GenerateImage returns ErrProviderUnavailable when no image could be produced.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	prompt := BuildPrompt(model.ContentImage, req.Input)

	body := imageRequest{
		Model:  c.imageModel,
		Prompt: prompt.User,
		N:      1,
		Size:   req.Size,
	}

	var resp imageResponse
	err := c.call(ctx, endpointImages, body, &resp)
	if err == nil && (len(resp.Data) == 0 || resp.Data[0].URL == "") {
		err = errors.New("empty image response")
	}
	if err != nil {
		c.logger.Warn("AI image generation failed",
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return &ImageResult{
		URL:      resp.Data[0].URL,
		Prompt:   prompt.User,
		Provider: c.provider,
		Model:    c.imageModel,
	}, nil
}

// call runs one request through the circuit breaker and retries once on a
// retryable failure.
func (c *Client) call(ctx context.Context, endpoint string, in, out any) error {
	if c.apiKey == "" {
		return errors.New("ai api key not configured")
	}

	err := c.cb.Execute(func() error { return c.do(ctx, endpoint, in, out) })
	if err == nil || errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return err
	}

	retryable, errType := util.IsRetryableError(err)
	if !retryable {
		return err
	}
	c.logger.Info("Retrying AI call", zap.String("endpoint", endpoint), zap.String("error_type", errType))
	return c.cb.Execute(func() error { return c.do(ctx, endpoint, in, out) })
}

func (c *Client) do(ctx context.Context, endpoint string, in, out any) error {
	start := time.Now()

	b, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// 传播 trace_id
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAICallLatency(endpoint, "error", time.Since(start))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := fmt.Sprintf("%d", resp.StatusCode)
		if resp.StatusCode >= 500 {
			status = "5xx"
		}
		metrics.RecordAICallLatency(endpoint, status, time.Since(start))
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &util.StatusError{Service: "ai provider", StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	metrics.RecordAICallLatency(endpoint, "success", time.Since(start))
	return json.NewDecoder(resp.Body).Decode(out)
}
