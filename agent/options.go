package agent

import (
	"fmt"
	"log/slog"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/observe"
)

// DefaultMaxIterations bounds the number of model calls per query.
const DefaultMaxIterations = 10

// DefaultSystemPrompt is sent with every model call unless WithSystemPrompt overrides it.
const DefaultSystemPrompt = "You are a financial analysis assistant. " +
	"Answer questions about stocks, companies, sectors and portfolios. " +
	"Use the available functions to fetch market data and run analyses instead of guessing figures, " +
	"and base your final answer on their results."

type options struct {
	maxIterations int
	systemPrompt  string
	temperature   float64
	logger        *slog.Logger
	metrics       *observe.Metrics
}

func defaultOptions() options {
	return options{
		maxIterations: DefaultMaxIterations,
		systemPrompt:  DefaultSystemPrompt,
		logger:        slog.Default(),
	}
}

// Option configures an Agent.
type Option func(*options) error

// WithMaxIterations sets the maximum number of model calls per query. n must be at least 1.
func WithMaxIterations(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("agent: %w: max iterations must be >= 1, got %d", finagent.ErrConfiguration, n)
		}
		o.maxIterations = n
		return nil
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt. An empty prompt sends none.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) error {
		o.systemPrompt = prompt
		return nil
	}
}

// WithTemperature sets the sampling temperature (0 leaves the provider default).
func WithTemperature(t float64) Option {
	return func(o *options) error {
		if t < 0 || t > 2 {
			return fmt.Errorf("agent: %w: temperature must be in [0, 2], got %g", finagent.ErrConfiguration, t)
		}
		o.temperature = t
		return nil
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}

// WithMetrics records model requests and run outcomes. Nil disables recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
