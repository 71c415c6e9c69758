package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryAfter     = 30 * time.Second
	defaultRequestTimeout = 120 * time.Second
	logBodyPreviewLimit   = 512
	retryAfterHeaderName  = "Retry-After"
)

// Client issues single chat-completion exchanges against an
// OpenAI-compatible endpoint. A rate-limited request is reissued
// exactly once after the server-provided (or default) delay; there is
// no further retry and no exponential backoff.
type Client struct {
	HTTPBaseURL     string
	APIKey          string
	ModelIdentifier string
	RequestTimeout  time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatCompletionChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
}

// Complete sends one request carrying the two prompts and the token
// budget and returns the generated text, or an error once the single
// rate-limit retry is exhausted or any other failure occurs.
func (c Client) Complete(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int) (string, error) {
	requestPayload := ChatCompletionRequest{
		Model: c.ModelIdentifier,
		Messages: []ChatMessage{
			{Role: "system", Content: strings.TrimSpace(systemPrompt)},
			{Role: "user", Content: strings.TrimSpace(userPrompt)},
		},
		MaxCompletionTokens: maxTokens,
	}
	requestBytes, marshalErr := json.Marshal(requestPayload)
	if marshalErr != nil {
		return "", marshalErr
	}

	statusCode, captured, issueErr := c.issue(ctx, requestBytes)
	if issueErr != nil {
		c.logger().Warn("completion request failed", zap.Error(issueErr))
		return "", issueErr
	}
	if statusCode == http.StatusTooManyRequests {
		retryAfter := retryAfterDuration(captured.header)
		c.logger().Warn("rate limited, waiting before single retry", zap.Duration("retry_after", retryAfter))
		if sleepErr := sleepContext(ctx, retryAfter); sleepErr != nil {
			return "", sleepErr
		}
		statusCode, captured, issueErr = c.issue(ctx, requestBytes)
		if issueErr != nil {
			c.logger().Warn("completion retry failed", zap.Error(issueErr))
			return "", issueErr
		}
	}

	bodyPreview := truncateForLog(string(captured.body), logBodyPreviewLimit)
	if statusCode < 200 || statusCode >= 300 {
		err := fmt.Errorf("llm http error %d: %s", statusCode, bodyPreview)
		c.logger().Warn("completion returned non-success status", zap.Int("status", statusCode), zap.String("body", bodyPreview))
		return "", err
	}

	var completion ChatCompletionResponse
	if decodeErr := json.Unmarshal(captured.body, &completion); decodeErr != nil {
		return "", fmt.Errorf("decode chat completion: %w (body=%s)", decodeErr, bodyPreview)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices (status=%d body=%s)", statusCode, bodyPreview)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty message (status=%d body=%s)", statusCode, bodyPreview)
	}
	return content, nil
}

type responseCapture struct {
	body   []byte
	header http.Header
}

func (c Client) issue(ctx context.Context, requestBytes []byte) (int, responseCapture, error) {
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpRequest, buildErr := http.NewRequestWithContext(requestCtx, http.MethodPost, c.HTTPBaseURL+"/chat/completions", bytes.NewReader(requestBytes))
	if buildErr != nil {
		return 0, responseCapture{}, buildErr
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	httpResponse, httpErr := httpClient.Do(httpRequest)
	if httpErr != nil {
		if errors.Is(requestCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, responseCapture{}, fmt.Errorf("request timed out after %s", timeout)
		}
		return 0, responseCapture{}, httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return 0, responseCapture{}, readErr
	}
	return httpResponse.StatusCode, responseCapture{body: bodyBytes, header: httpResponse.Header}, nil
}

func (c Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// retryAfterDuration reads an integer-seconds Retry-After header,
// falling back to the 30 second default when absent or malformed.
func retryAfterDuration(header http.Header) time.Duration {
	value := strings.TrimSpace(header.Get(retryAfterHeaderName))
	if value == "" {
		return defaultRetryAfter
	}
	seconds, parseErr := strconv.Atoi(value)
	if parseErr != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
