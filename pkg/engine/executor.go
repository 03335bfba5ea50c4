package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/llm"
	"github.com/xhad/ragflow/pkg/metrics"
)

// Executor runs a workflow to completion. It never returns an error; every
// failure is reported in the ExecutionResult envelope.
type Executor struct {
	resolver *Resolver
	texts    *TextFetcher
	gateway  types.Generator
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewExecutor(resolver *Resolver, texts *TextFetcher, gateway types.Generator, m *metrics.Metrics, logger *zap.Logger) *Executor {
	return &Executor{
		resolver: resolver,
		texts:    texts,
		gateway:  gateway,
		metrics:  m,
		log:      logger.Named("executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, wf models.Workflow) models.ExecutionResult {
	resolved, err := e.resolver.Resolve(wf)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			return e.failed(reasonFor(f.Kind), f.Message)
		}
		return e.failed("resolve", err.Error())
	}

	log := e.log.With(zap.String("filename", resolved.Filename))

	text, err := e.texts.Text(ctx, resolved.Filename)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return e.failed("missing_document", fmt.Sprintf("PDF file not found: %s", resolved.Filename))
		}
		cause := err
		var se *StageError
		if errors.As(err, &se) {
			cause = se.Err
		}
		log.Warn("Text extraction failed", zap.Error(cause))
		return e.failed("extraction", fmt.Sprintf("Failed to extract PDF text: %v", cause))
	}

	answer, err := e.gateway.Generate(ctx, types.GenerateRequest{
		Prompt:    resolved.Query,
		Context:   text,
		Backend:   resolved.Backend,
		APIKey:    resolved.APIKey,
		ModelName: resolved.ModelName,
	})
	if err != nil {
		var gerr *llm.GatewayError
		if !errors.As(err, &gerr) {
			err = &llm.GatewayError{Provider: "Model", Err: err}
		}
		if errors.Is(err, llm.ErrGatewayTimeout) {
			return e.failed("gateway_timeout", err.Error())
		}
		return e.failed("gateway", err.Error())
	}

	e.metrics.WorkflowRuns.WithLabelValues(models.StatusSuccess, "").Inc()
	log.Info("Workflow executed", zap.Int("context_bytes", len(text)))

	return models.ExecutionResult{
		Status:   models.StatusSuccess,
		Message:  "Workflow executed.",
		Workflow: &wf,
		Result:   strings.TrimSpace(answer),
	}
}

func (e *Executor) failed(reason, message string) models.ExecutionResult {
	e.metrics.WorkflowRuns.WithLabelValues(models.StatusError, reason).Inc()
	e.log.Debug("Workflow failed", zap.String("reason", reason), zap.String("message", message))
	return models.ExecutionResult{
		Status:  models.StatusError,
		Message: message,
		Result:  "",
	}
}

func reasonFor(kind error) string {
	switch kind {
	case ErrMissingQuery:
		return "missing_query"
	case ErrMissingDocument:
		return "missing_document"
	default:
		return "resolve"
	}
}
