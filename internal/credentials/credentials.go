// Package credentials checks that a provider API key is accepted.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	DefaultBaseURL    = "https://api.novita.ai/v3/openai"
	DefaultProbeModel = "meta-llama/llama-3-8b-instruct"

	probeMaxTokens = 5
	probePrompt    = "ping"
)

// ErrCredentialsInvalid matches every InvalidError.
var ErrCredentialsInvalid = errors.New("credentials rejected by provider")

// InvalidError reports a key the provider refused (HTTP 401 or 403).
type InvalidError struct {
	StatusCode int
	Message    string
}

func (e *InvalidError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("credentials rejected by provider (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("credentials rejected by provider (HTTP %d): %s", e.StatusCode, e.Message)
}

// Is implements errors.Is support.
func (e *InvalidError) Is(target error) bool { return target == ErrCredentialsInvalid }

// Validator probes the provider's OpenAI-compatible endpoint.
type Validator struct {
	client openai.Client
	model  string
}

// Option configures a Validator.
type Option func(*options)

type options struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithProbeModel overrides the model used for the probe request.
func WithProbeModel(m string) Option {
	return func(o *options) { o.model = m }
}

// WithHTTPClient sets the transport used for the probe.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New creates a Validator for apiKey.
func New(apiKey string, opts ...Option) *Validator {
	o := options{baseURL: DefaultBaseURL, model: DefaultProbeModel}
	for _, fn := range opts {
		fn(&o)
	}
	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}
	if o.model == "" {
		o.model = DefaultProbeModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(o.baseURL),
		option.WithMaxRetries(0),
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	return &Validator{
		client: openai.NewClient(reqOpts...),
		model:  o.model,
	}
}

// Validate issues a minimal chat completion. It returns nil when the
// provider answers, an *InvalidError when the key is refused and a wrapped
// error for anything else.
func (v *Validator) Validate(ctx context.Context) error {
	_, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(v.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(probePrompt),
		},
		MaxTokens: openai.Int(probeMaxTokens),
	})
	if err == nil {
		slog.Info("credentials accepted", "model", v.model)
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return &InvalidError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
	}

	slog.Error("credential probe failed", "model", v.model, "error", err)
	return fmt.Errorf("probing provider with %s: %w", v.model, err)
}
