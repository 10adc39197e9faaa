package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"shop-assistant/internal/common/metrics"
	"shop-assistant/internal/models"
)

var (
	ErrMissingCredential = errors.New("LLM_CREDENTIAL_MISSING")
	ErrBackendTimeout    = errors.New("LLM_TIMEOUT")
	ErrBackendFailed     = errors.New("LLM_REQUEST_FAILED")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Completer sends one prompt and returns the top completion's text.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message, decoding models.DecodingConfig) (string, error)
	HasCredential() bool
}

// GatewayError carries the backend's status and message. It unwraps to
// ErrBackendTimeout or ErrBackendFailed and to the transport error.
type GatewayError struct {
	StatusCode int
	Message    string
	Kind       error
	Cause      error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

type Client struct {
	config *Config
	client openai.Client
	logger Logger
}

func NewClient(config *Config, httpClient *http.Client, log Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Client{
		config: config,
		client: openai.NewClient(opts...),
		logger: log.With(map[string]interface{}{
			"component": "llm-gateway",
		}),
	}
}

func (c *Client) HasCredential() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

func (c *Client) Complete(ctx context.Context, messages []models.Message, decoding models.DecodingConfig) (string, error) {
	if !c.HasCredential() {
		return "", ErrMissingCredential
	}

	ctx, span := otel.Tracer("shop-assistant/llm").Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", decoding.Model),
		attribute.Int("llm.messages", len(messages)),
	)

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Messages:    toParams(messages),
		Model:       shared.ChatModel(decoding.Model),
		Temperature: openai.Float(decoding.Temperature),
	}
	if decoding.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(decoding.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		gwErr := classify(ctx, err)
		metrics.LLMCallDuration.WithLabelValues(statusLabel(gwErr)).Observe(elapsed.Seconds())
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, gwErr.Kind.Error())
		c.logger.Error("completion request failed", map[string]interface{}{
			"traceId":        span.SpanContext().TraceID().String(),
			"model":          decoding.Model,
			"upstreamStatus": gwErr.StatusCode,
			"durationMs":     elapsed.Milliseconds(),
			"error":          gwErr.Error(),
		})
		return "", gwErr
	}

	metrics.LLMCallDuration.WithLabelValues("ok").Observe(elapsed.Seconds())

	reply := ""
	if len(resp.Choices) > 0 {
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	c.logger.Info("completion received", map[string]interface{}{
		"traceId":    span.SpanContext().TraceID().String(),
		"model":      decoding.Model,
		"choices":    len(resp.Choices),
		"replyChars": len(reply),
		"durationMs": elapsed.Milliseconds(),
	})

	return reply, nil
}

func toParams(messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func classify(ctx context.Context, err error) *GatewayError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &GatewayError{Kind: ErrBackendTimeout, Message: "request timed out", Cause: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &GatewayError{
			StatusCode: apiErr.StatusCode,
			Message:    upstreamMessage(apiErr),
			Kind:       ErrBackendFailed,
			Cause:      err,
		}
	}

	return &GatewayError{Kind: ErrBackendFailed, Message: err.Error(), Cause: err}
}

// upstreamMessage prefers the decoded message and falls back to the
// error.message field of the raw body.
func upstreamMessage(apiErr *openai.Error) string {
	if msg := strings.TrimSpace(apiErr.Message); msg != "" {
		return msg
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &body) == nil {
		if body.Error.Message != "" {
			return body.Error.Message
		}
		return body.Message
	}
	return ""
}

func statusLabel(err *GatewayError) string {
	if errors.Is(err, ErrBackendTimeout) {
		return "timeout"
	}
	if err.StatusCode > 0 {
		return strconv.Itoa(err.StatusCode)
	}
	return "transport_error"
}
