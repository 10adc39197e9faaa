package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	apperrors "shop-assistant/internal/common/errors"
	"shop-assistant/internal/common/metrics"
	"shop-assistant/internal/llm"
	"shop-assistant/internal/models"
	"shop-assistant/internal/prompt"
	"shop-assistant/internal/recommend"
)

// State is a step of the per-request pipeline.
type State string

const (
	StateReceived        State = "received"
	StateValidated       State = "validated"
	StatePromptBuilt     State = "prompt_built"
	StateAwaitingBackend State = "awaiting_backend"
	StateExtracted       State = "extracted"
	StateResponded       State = "responded"
	StateFailed          State = "failed"
)

const (
	OutcomeOK = "ok"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Catalogue is the read-only view the pipeline needs.
type Catalogue interface {
	recommend.Lookup
	Len() int
	Summaries() []models.CatalogueSummaryEntry
}

// Recorder receives per-request outcome metrics.
type Recorder interface {
	RecordChatProcessed(ctx context.Context, outcome string)
	RecordChatDuration(ctx context.Context, duration time.Duration, outcome string)
}

type Dependencies struct {
	Catalogue Catalogue
	Assembler *prompt.Assembler
	Completer llm.Completer
	Extractor *recommend.Extractor
	Recorder  Recorder
	Logger    Logger
}

type Config struct {
	StrictDefault bool
}

type Request struct {
	Messages  []models.Message
	Context   string
	Strict    *bool
	Origin    string
	RequestID string
}

// Orchestrator composes prompt assembly, the backend call and extraction.
// It keeps no state between requests.
type Orchestrator struct {
	deps   Dependencies
	config Config
}

func NewOrchestrator(deps Dependencies, config Config) *Orchestrator {
	if deps.Extractor == nil {
		deps.Extractor = recommend.NewExtractor(deps.Catalogue, recommend.DefaultMaxItems)
	}
	return &Orchestrator{deps: deps, config: config}
}

// Handle runs one request to completion. A non-nil error is always a
// *errors.StandardError; panics are recovered into INTERNAL_ERROR.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (resp *models.ChatResponse, err error) {
	start := time.Now()
	state := StateReceived
	log := o.deps.Logger.With(map[string]interface{}{"requestId": req.RequestID})

	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = apperrors.NewInternalError(fmt.Errorf("panic during %s: %v", state, r))
			log.Error("chat pipeline panicked", map[string]interface{}{
				"state": string(state),
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
		}
		o.record(ctx, start, err)
	}()

	if !o.deps.Completer.HasCredential() {
		state = StateFailed
		return nil, apperrors.NewConfigurationError("no LLM API key configured")
	}
	state = StateValidated

	strict := o.config.StrictDefault
	if req.Strict != nil {
		strict = *req.Strict
	}

	var summaries []models.CatalogueSummaryEntry
	if o.deps.Catalogue != nil && o.deps.Catalogue.Len() > 0 {
		summaries = o.deps.Catalogue.Summaries()
	}

	p, err := o.deps.Assembler.Assemble(prompt.Input{
		History:   req.Messages,
		Context:   req.Context,
		Strict:    strict,
		Origin:    req.Origin,
		Catalogue: summaries,
	})
	if err != nil {
		state = StateFailed
		return nil, apperrors.NewInternalError(err)
	}
	state = StatePromptBuilt

	// A caller that went away during assembly gets no backend call.
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn("request cancelled before backend call", map[string]interface{}{
			"state": string(state),
			"error": ctxErr.Error(),
		})
		state = StateFailed
		return nil, apperrors.NewBackendError(0, "Request cancelled", ctxErr)
	}

	state = StateAwaitingBackend
	raw, err := o.deps.Completer.Complete(ctx, p.Messages, p.Decoding)
	if err != nil {
		state = StateFailed
		return nil, backendFailure(err)
	}

	result := o.deps.Extractor.Extract(raw)
	state = StateExtracted
	if result.Malformed {
		metrics.MalformedMarkers.Inc()
		malformed := apperrors.NewMalformedExtractionError(result.Err)
		log.Warn("recommendation marker ignored", map[string]interface{}{
			"code":    string(malformed.Code),
			"details": malformed.Details,
		})
	}
	metrics.RecommendationsReturned.Observe(float64(len(result.Items)))

	state = StateResponded
	log.Info("chat request completed", map[string]interface{}{
		"strict":     strict,
		"messages":   len(p.Messages),
		"products":   len(result.Items),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return &models.ChatResponse{Reply: result.Clean, Products: result.Items}, nil
}

// backendFailure maps a gateway error onto the response taxonomy.
func backendFailure(err error) error {
	if stderrors.Is(err, llm.ErrMissingCredential) {
		return apperrors.NewConfigurationError(err.Error())
	}
	var gwErr *llm.GatewayError
	if !stderrors.As(err, &gwErr) {
		return apperrors.NewBackendError(0, "", err)
	}
	if stderrors.Is(gwErr, llm.ErrBackendTimeout) {
		return apperrors.NewBackendTimeoutError(gwErr)
	}
	return apperrors.NewBackendError(gwErr.StatusCode, gwErr.Message, gwErr)
}

func (o *Orchestrator) record(ctx context.Context, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = apperrors.GetErrorCategory(apperrors.Normalize(err).Code)
	}
	elapsed := time.Since(start)

	metrics.ChatRequests.WithLabelValues(outcome).Inc()
	if o.deps.Recorder != nil {
		o.deps.Recorder.RecordChatProcessed(ctx, outcome)
		o.deps.Recorder.RecordChatDuration(ctx, elapsed, outcome)
	}
}
