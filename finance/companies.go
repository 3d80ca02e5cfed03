package finance

import (
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/skosovsky/finagent/fmp"
)

// companyMetrics is the per-company row embedded in analysis prompts.
type companyMetrics struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector,omitempty"`
	Industry  string  `json:"industry,omitempty"`
	MarketCap float64 `json:"market_cap"`
	Price     float64 `json:"price"`
	PE        float64 `json:"pe_ratio"`
	Beta      float64 `json:"beta"`
	Revenue   float64 `json:"revenue,omitempty"`
	NetIncome float64 `json:"net_income,omitempty"`
}

// companyMetricsFor fetches profile and quote, plus the income statement when withIncome is set.
func (s *Service) companyMetricsFor(ctx context.Context, symbol string, withIncome bool) (companyMetrics, error) {
	var (
		profile *fmp.Profile
		quote   *fmp.Quote
		income  *fmp.IncomeStatement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = s.data.Profile(gctx, symbol)
		return err
	})
	g.Go(func() (err error) {
		quote, err = s.data.Quote(gctx, symbol)
		return err
	})
	if withIncome {
		g.Go(func() (err error) {
			income, err = s.data.IncomeStatement(gctx, symbol)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return companyMetrics{}, err
	}
	m := companyMetrics{
		Symbol:    profile.Symbol,
		Name:      profile.CompanyName,
		Sector:    profile.Sector,
		Industry:  profile.Industry,
		MarketCap: profile.MarketCap,
		Price:     quote.Price,
		PE:        quote.PE,
		Beta:      profile.Beta,
	}
	if m.Symbol == "" {
		m.Symbol = symbol
	}
	if income != nil {
		m.Revenue = income.Revenue
		m.NetIncome = income.NetIncome
	}
	return m, nil
}

// companyMetricsList fetches metrics for every symbol with bounded parallelism, keeping input order.
// Symbols the provider has no data for are skipped; any other failure aborts.
// It fails with fmp.ErrNoData when nothing is left.
func (s *Service) companyMetricsList(ctx context.Context, symbols []string, withIncome bool) ([]companyMetrics, error) {
	rows := make([]*companyMetrics, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			m, err := s.companyMetricsFor(gctx, sym, withIncome)
			if fmp.IsCallerError(err) {
				s.logger.DebugContext(gctx, "skipping company without data", "symbol", sym, "err", err)
				return nil
			}
			if err != nil {
				return err
			}
			rows[i] = &m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]companyMetrics, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no company data for %v", fmp.ErrNoData, symbols)
	}
	return out, nil
}

// screen returns the symbols selected by f, without exclude.
func (s *Service) screen(ctx context.Context, f fmp.ScreenerFilter, exclude string) ([]string, error) {
	rows, err := s.data.Screener(ctx, f)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" || r.Symbol == exclude || slices.Contains(symbols, r.Symbol) {
			continue
		}
		symbols = append(symbols, r.Symbol)
	}
	return symbols, nil
}

// peers lists up to limit other companies of the same industry. A missing industry or an
// empty screener result yields no peers rather than an error.
func (s *Service) peers(ctx context.Context, industry, symbol string, limit int) ([]string, error) {
	if industry == "" {
		return nil, nil
	}
	peers, err := s.screen(ctx, fmp.ScreenerFilter{Industry: industry, Limit: limit}, symbol)
	if fmp.IsCallerError(err) {
		return nil, nil
	}
	return peers, err
}

// healthRatios are the balance sheet ratios of a financial health assessment.
// A nil ratio means its denominator was zero.
type healthRatios struct {
	CurrentRatio *float64 `json:"current_ratio"`
	DebtToEquity *float64 `json:"debt_to_equity"`
	ROE          *float64 `json:"roe"`
	FreeCashFlow float64  `json:"free_cash_flow"`
}

func computeHealthRatios(bs *fmp.BalanceSheet, cf *fmp.CashFlow, is *fmp.IncomeStatement) healthRatios {
	return healthRatios{
		CurrentRatio: ratio(bs.TotalCurrentAssets, bs.TotalCurrentLiabilities),
		DebtToEquity: ratio(bs.TotalLiabilities, bs.TotalStockholdersEquity),
		ROE:          ratio(is.NetIncome, bs.TotalStockholdersEquity),
		// FMP reports capital expenditure as a negative outflow; some filings use a positive value.
		FreeCashFlow: cf.OperatingCashFlow - math.Abs(cf.CapitalExpenditure),
	}
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	r := num / den
	return &r
}
