package finance

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/fmp"
)

// SymbolArgs is the input of single-symbol tools.
type SymbolArgs struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock ticker symbol, e.g. AAPL"`
}

// Validate rejects empty and malformed tickers before any request is made.
func (a SymbolArgs) Validate() error { return validSymbol(a.Symbol) }

// PairArgs is the input of compare_stocks.
type PairArgs struct {
	Symbol1 string `json:"symbol1" jsonschema_description:"First stock ticker symbol"`
	Symbol2 string `json:"symbol2" jsonschema_description:"Second stock ticker symbol"`
}

func (a PairArgs) Validate() error {
	if err := validSymbol(a.Symbol1); err != nil {
		return err
	}
	return validSymbol(a.Symbol2)
}

// StockSnapshot is one side of a compare_stocks result.
type StockSnapshot struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	PE        float64 `json:"pe"`
	EPS       float64 `json:"eps"`
	MarketCap float64 `json:"market_cap"`
	Sector    string  `json:"sector"`
	Industry  string  `json:"industry"`
	Revenue   float64 `json:"revenue"`
	NetIncome float64 `json:"net_income"`
}

// Comparison is the compare_stocks result.
type Comparison struct {
	Stock1 StockSnapshot `json:"stock1"`
	Stock2 StockSnapshot `json:"stock2"`
}

func (s *Service) stockPriceTool() (finagent.Tool, error) {
	return finagent.NewTool("get_stock_price",
		"Get the current stock price and related trading information (volume, moving averages, EPS, P/E) for a ticker symbol.",
		func(ctx context.Context, args SymbolArgs) (*fmp.Quote, error) {
			q, err := s.data.Quote(ctx, args.Symbol)
			return q, toolError(err)
		}, finagent.WithTags(TagAtomic))
}

func (s *Service) companyFinancialsTool() (finagent.Tool, error) {
	return finagent.NewTool("get_company_financials",
		"Get company profile information (name, market cap, sector, industry, beta) for a ticker symbol.",
		func(ctx context.Context, args SymbolArgs) (*fmp.Profile, error) {
			p, err := s.data.Profile(ctx, args.Symbol)
			return p, toolError(err)
		}, finagent.WithTags(TagAtomic))
}

func (s *Service) incomeStatementTool() (finagent.Tool, error) {
	return finagent.NewTool("get_income_statement",
		"Get the latest annual income statement (revenue, gross profit, net income, EBITDA, EPS) for a ticker symbol.",
		func(ctx context.Context, args SymbolArgs) (*fmp.IncomeStatement, error) {
			is, err := s.data.IncomeStatement(ctx, args.Symbol)
			return is, toolError(err)
		}, finagent.WithTags(TagAtomic))
}

func (s *Service) compareStocksTool() (finagent.Tool, error) {
	return finagent.NewTool("compare_stocks",
		"Compare two stocks side by side on price, valuation, size and profitability.",
		func(ctx context.Context, args PairArgs) (Comparison, error) {
			var out Comparison
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				snap, err := s.snapshot(gctx, args.Symbol1)
				out.Stock1 = snap
				return err
			})
			g.Go(func() error {
				snap, err := s.snapshot(gctx, args.Symbol2)
				out.Stock2 = snap
				return err
			})
			if err := g.Wait(); err != nil {
				return Comparison{}, toolError(err)
			}
			return out, nil
		}, finagent.WithTags(TagAtomic))
}

// snapshot fetches quote, profile and income statement of one symbol concurrently.
func (s *Service) snapshot(ctx context.Context, symbol string) (StockSnapshot, error) {
	var (
		quote   *fmp.Quote
		profile *fmp.Profile
		income  *fmp.IncomeStatement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		quote, err = s.data.Quote(gctx, symbol)
		return err
	})
	g.Go(func() (err error) {
		profile, err = s.data.Profile(gctx, symbol)
		return err
	})
	g.Go(func() (err error) {
		income, err = s.data.IncomeStatement(gctx, symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return StockSnapshot{}, err
	}
	return StockSnapshot{
		Symbol:    quote.Symbol,
		Price:     quote.Price,
		PE:        quote.PE,
		EPS:       quote.EPS,
		MarketCap: profile.MarketCap,
		Sector:    profile.Sector,
		Industry:  profile.Industry,
		Revenue:   income.Revenue,
		NetIncome: income.NetIncome,
	}, nil
}
