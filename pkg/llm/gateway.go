package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/metrics"
)

const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

var (
	ErrGateway            = errors.New("gateway error")
	ErrGatewayTimeout     = errors.New("model call timed out")
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

// GatewayError carries the provider display name so callers can surface the
// same message shape for every failure.
type GatewayError struct {
	Provider string
	Timeout  time.Duration
	Err      error
}

func (e *GatewayError) Error() string {
	if errors.Is(e.Err, ErrGatewayTimeout) {
		return fmt.Sprintf("%s API error: Timeout. The model did not respond in %s.", e.Provider, formatTimeout(e.Timeout))
	}
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

func formatTimeout(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
	return d.String()
}

// ModelFactory builds a langchaingo model for one backend.
type ModelFactory func(ctx context.Context, apiKey, modelName string) (llms.Model, error)

// maxClients bounds the per-provider client cache. Requests may carry their
// own key or model, so the set of distinct clients is caller controlled.
const maxClients = 16

type clientKey struct {
	apiKey, model string
}

// Provider is one selectable backend.
type Provider struct {
	Backend      string
	DisplayName  string
	APIKey       string
	DefaultModel string
	New          ModelFactory

	mu      sync.Mutex
	clients map[clientKey]llms.Model
	grace   time.Duration
}

// model returns a cached client for the effective key and model, building it
// on first use. Request overrides get their own entries; when the cache is
// full one override entry is evicted, the default client never is.
func (p *Provider) model(ctx context.Context, apiKey, modelName string) (llms.Model, error) {
	if apiKey == "" {
		apiKey = p.APIKey
	}
	if modelName == "" {
		modelName = p.DefaultModel
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for %s", p.DisplayName)
	}

	key := clientKey{apiKey: apiKey, model: modelName}
	def := clientKey{apiKey: p.APIKey, model: p.DefaultModel}

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.clients[key]; ok {
		return m, nil
	}

	m, err := p.New(ctx, apiKey, modelName)
	if err != nil {
		return nil, err
	}

	if p.clients == nil {
		p.clients = make(map[clientKey]llms.Model)
	}
	if len(p.clients) >= maxClients {
		for k, old := range p.clients {
			if k != def {
				delete(p.clients, k)
				p.release(old)
				break
			}
		}
	}
	p.clients[key] = m
	return m, nil
}

// release closes an evicted client once every call that may still hold it
// has passed its deadline.
func (p *Provider) release(m llms.Model) {
	c, ok := m.(io.Closer)
	if !ok {
		return
	}
	time.AfterFunc(p.grace, func() { _ = c.Close() })
}

type GatewayConfig struct {
	DefaultBackend string
	Timeout        time.Duration
	Temperature    float64
}

// Gateway is the single entry point for language model calls.
type Gateway struct {
	config    GatewayConfig
	providers map[string]*Provider
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewWithConfig(config GatewayConfig, logger *zap.Logger, m *metrics.Metrics, providers ...*Provider) (*Gateway, error) {
	if config.DefaultBackend == "" {
		config.DefaultBackend = BackendGemini
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Temperature == 0 {
		config.Temperature = 0.75
	}

	g := &Gateway{
		config:    config,
		providers: make(map[string]*Provider, len(providers)),
		logger:    logger.Named("gateway"),
		metrics:   m,
	}
	for _, p := range providers {
		p.grace = config.Timeout
		g.providers[p.Backend] = p
	}
	if _, ok := g.providers[config.DefaultBackend]; !ok {
		return nil, fmt.Errorf("%w: default backend %q has no provider", ErrUnsupportedBackend, config.DefaultBackend)
	}
	return g, nil
}

// ComposePrompt joins the question with optional context into one prompt.
func ComposePrompt(prompt, context string) string {
	if context == "" {
		return prompt
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", context, prompt)
}

type callResult struct {
	text string
	err  error
}

// Generate runs one model call under the gateway deadline. The call runs on
// its own goroutine; when the deadline passes the caller gets a timeout error
// immediately and the call's context is cancelled without waiting for it.
func (g *Gateway) Generate(ctx context.Context, req types.GenerateRequest) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(req.Backend))
	if backend == "" {
		backend = g.config.DefaultBackend
	}

	p, ok := g.providers[backend]
	if !ok {
		g.metrics.ModelCalls.WithLabelValues(backend, "unsupported").Inc()
		return "", &GatewayError{Provider: backend, Err: fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)}
	}

	prompt := ComposePrompt(req.Prompt, req.Context)

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	// Client construction runs inside the deadline too. Clients outlive this
	// call in the cache, so they are built on a context that is never cancelled.
	done := make(chan callResult, 1)
	start := time.Now()
	go func() {
		model, err := p.model(context.WithoutCancel(callCtx), req.APIKey, req.ModelName)
		if err != nil {
			done <- callResult{err: err}
			return
		}
		text, err := llms.GenerateFromSinglePrompt(callCtx, model, prompt, llms.WithTemperature(g.config.Temperature))
		done <- callResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		g.metrics.ModelCallDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", g.timedOut(backend, p)
		}
		if res.err != nil {
			g.metrics.ModelCalls.WithLabelValues(backend, "error").Inc()
			g.logger.Error("Model call failed", zap.String("backend", backend), zap.Error(res.err))
			return "", &GatewayError{Provider: p.DisplayName, Err: res.err}
		}
		g.metrics.ModelCalls.WithLabelValues(backend, "success").Inc()
		g.logger.Debug("Model call complete",
			zap.String("backend", backend),
			zap.Duration("duration", time.Since(start)),
			zap.Int("prompt_bytes", len(prompt)),
		)
		return strings.TrimSpace(res.text), nil

	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			g.metrics.ModelCalls.WithLabelValues(backend, "cancelled").Inc()
			return "", &GatewayError{Provider: p.DisplayName, Err: err}
		}
		return "", g.timedOut(backend, p)
	}
}

func (g *Gateway) timedOut(backend string, p *Provider) error {
	g.metrics.ModelCalls.WithLabelValues(backend, "timeout").Inc()
	g.logger.Warn("Model call timed out", zap.String("backend", backend), zap.Duration("timeout", g.config.Timeout))
	return &GatewayError{Provider: p.DisplayName, Timeout: g.config.Timeout, Err: ErrGatewayTimeout}
}
