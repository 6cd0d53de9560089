package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const maxAttempts = 3

// Options configures an OpenAIClient.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds a single Complete call including retries.
	Timeout         time.Duration
	MaxOutputTokens int64
	HTTPClient      *http.Client
}

// OpenAIClient implements Completer on top of the OpenAI Responses API.
type OpenAIClient struct {
	client          openai.Client
	model           string
	timeout         time.Duration
	maxOutputTokens int64

	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
}

// NewOpenAIClient builds a client. Retries are handled here, not by the SDK.
func NewOpenAIClient(opts Options) *OpenAIClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = 1200
	}

	return &OpenAIClient{
		client:           openai.NewClient(reqOpts...),
		model:            opts.Model,
		timeout:          opts.Timeout,
		maxOutputTokens:  opts.MaxOutputTokens,
		rateLimitWaits:   []time.Duration{2 * time.Second, 5 * time.Second},
		serverErrorWaits: []time.Duration{1 * time.Second, 3 * time.Second},
	}
}

// Complete sends systemPrompt as instructions and userPrompt as the user turn.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.model == "" {
		return "", errors.New("llm: model is empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Instructions:    openai.String(systemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(userPrompt, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *OpenAIClient) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = c.rateLimitWaits
		case isServerError(err):
			waits = c.serverErrorWaits
		default:
			return nil, err
		}
		if attempt >= len(waits) || attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waits[attempt]):
		}
	}
	return nil, fmt.Errorf("llm: after %d attempts: %w", maxAttempts, lastErr)
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if statusCode(err) == http.StatusTooManyRequests {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code >= 500 {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
