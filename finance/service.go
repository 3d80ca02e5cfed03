// Package finance provides the financial tools offered to the model: atomic
// lookups against Financial Modeling Prep and orchestration tools that combine
// several lookups and ask the model for a written analysis.
package finance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/fmp"
	"github.com/skosovsky/finagent/llm"
)

// Tool tags.
const (
	TagAtomic        = "atomic"
	TagOrchestration = "orchestration"
)

const (
	defaultAnalysisTimeout  = 2 * time.Minute
	defaultFetchConcurrency = 4
	// historyDays is the number of daily bars summarized for price trends: one year of trading days.
	historyDays = 252
)

// DataSource is the market data used by the tools. *fmp.Client implements it.
type DataSource interface {
	Quote(ctx context.Context, symbol string) (*fmp.Quote, error)
	Profile(ctx context.Context, symbol string) (*fmp.Profile, error)
	IncomeStatement(ctx context.Context, symbol string) (*fmp.IncomeStatement, error)
	BalanceSheet(ctx context.Context, symbol string) (*fmp.BalanceSheet, error)
	CashFlow(ctx context.Context, symbol string) (*fmp.CashFlow, error)
	Screener(ctx context.Context, f fmp.ScreenerFilter) ([]fmp.ScreenerResult, error)
	HistoricalPrices(ctx context.Context, symbol string, days int) ([]fmp.HistoricalPrice, error)
}

var _ DataSource = (*fmp.Client)(nil)

// Service builds the financial tools around one data source and one model.
type Service struct {
	data             DataSource
	provider         llm.Provider
	logger           *slog.Logger
	analysisTimeout  time.Duration
	fetchConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAnalysisTimeout sets the per-call timeout of orchestration tools, which make
// several data requests plus one model call. Defaults to two minutes.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.analysisTimeout = d
	}
}

// WithFetchConcurrency bounds parallel data requests inside one tool call. Defaults to 4.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// New returns a Service. provider is only used by orchestration tools.
func New(data DataSource, provider llm.Provider, opts ...Option) (*Service, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: finance: nil data source", finagent.ErrConfiguration)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: finance: nil llm provider", finagent.ErrConfiguration)
	}
	s := &Service{
		data:             data,
		provider:         provider,
		logger:           slog.Default(),
		analysisTimeout:  defaultAnalysisTimeout,
		fetchConcurrency: defaultFetchConcurrency,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Tools builds every atomic and orchestration tool.
func (s *Service) Tools() ([]finagent.Tool, error) {
	builders := []func() (finagent.Tool, error){
		s.stockPriceTool,
		s.companyFinancialsTool,
		s.incomeStatementTool,
		s.compareStocksTool,
		s.sectorAnalysisTool,
		s.portfolioRecommendationTool,
		s.financialHealthTool,
		s.strategicInvestmentTool,
		s.marketTrendTool,
		s.competitiveAnalysisTool,
		s.comparativeAnalysisTool,
	}
	tools := make([]finagent.Tool, 0, len(builders))
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// Register builds a Service and registers all of its tools in reg. Name clashes
// and a sealed registry are detected before anything is added, so a failed
// Register leaves reg unchanged unless another goroutine registers concurrently.
func Register(reg *finagent.Registry, data DataSource, provider llm.Provider, opts ...Option) error {
	s, err := New(data, provider, opts...)
	if err != nil {
		return err
	}
	tools, err := s.Tools()
	if err != nil {
		return err
	}
	if reg.Sealed() {
		return fmt.Errorf("finance: %w", finagent.ErrRegistrySealed)
	}
	for _, t := range tools {
		if _, err := reg.Lookup(t.Name()); err == nil {
			return fmt.Errorf("finance: register %s: %w: %q already registered", t.Name(), finagent.ErrDuplicateTool, t.Name())
		}
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("finance: register %s: %w", t.Name(), err)
		}
	}
	return nil
}
