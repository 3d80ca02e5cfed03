package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/fmp"
	"github.com/skosovsky/finagent/llm"
)

var errEmptyAnalysis = errors.New("finance: model returned an empty analysis")

// AnalysisResult is the output of every orchestration tool.
type AnalysisResult struct {
	Analysis string `json:"analysis"`
}

// analysis describes one orchestration tool: gather data, render a prompt, ask the model.
type analysis[T, D any] struct {
	name        string
	description string
	system      string
	gather      func(context.Context, T) (D, error)
	prompt      func(D) string
}

func newAnalysisTool[T, D any](s *Service, a analysis[T, D]) (finagent.Tool, error) {
	return finagent.NewTool(a.name, a.description, func(ctx context.Context, args T) (AnalysisResult, error) {
		s.logger.DebugContext(ctx, "gathering analysis data", "tool", a.name)
		data, err := a.gather(ctx, args)
		if err != nil {
			return AnalysisResult{}, toolError(err)
		}
		text, err := s.analyze(ctx, a.system, a.prompt(data))
		if err != nil {
			return AnalysisResult{}, err
		}
		return AnalysisResult{Analysis: text}, nil
	}, finagent.WithTags(TagOrchestration), finagent.WithTimeout(s.analysisTimeout))
}

// analyze makes the single model call of an orchestration tool.
func (s *Service) analyze(ctx context.Context, system, prompt string) (string, error) {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{llm.UserMessage(prompt)},
	})
	if err != nil {
		return "", &finagent.SystemError{Err: fmt.Errorf("finance: analysis model call: %w", err)}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &finagent.SystemError{Err: errEmptyAnalysis}
	}
	return resp.Content, nil
}

// SectorArgs is the input of sector_analysis.
type SectorArgs struct {
	Sector string `json:"sector" jsonschema_description:"Sector name as used by Financial Modeling Prep, e.g. Technology"`
	TopN   int    `json:"top_n,omitempty" jsonschema:"minimum=1,maximum=20" jsonschema_description:"Number of top companies to analyze (default 5)"`
}

func (a SectorArgs) Validate() error { return requireText("sector", a.Sector) }

type sectorData struct {
	Sector    string
	TopN      int
	Companies []companyMetrics
}

func (s *Service) sectorAnalysisTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[SectorArgs, sectorData]{
		name:        "sector_analysis",
		description: "Analyze a market sector: performance, key players, sector metrics and outlook, based on its top companies.",
		system:      systemSectorAnalysis,
		gather: func(ctx context.Context, args SectorArgs) (sectorData, error) {
			topN := args.TopN
			if topN <= 0 {
				topN = 5
			}
			symbols, err := s.screen(ctx, fmp.ScreenerFilter{Sector: args.Sector, Limit: topN}, "")
			if err != nil {
				return sectorData{}, err
			}
			companies, err := s.companyMetricsList(ctx, symbols, true)
			if err != nil {
				return sectorData{}, err
			}
			return sectorData{Sector: args.Sector, TopN: topN, Companies: companies}, nil
		},
		prompt: sectorPrompt,
	})
}

// PortfolioArgs is the input of portfolio_recommendation.
type PortfolioArgs struct {
	RiskTolerance    string   `json:"risk_tolerance" jsonschema:"enum=low,enum=medium,enum=high" jsonschema_description:"Investor risk tolerance"`
	InvestmentAmount float64  `json:"investment_amount" jsonschema_description:"Amount to invest in USD"`
	Sectors          []string `json:"sectors" jsonschema:"minItems=1" jsonschema_description:"Sectors of interest"`
}

func (a PortfolioArgs) Validate() error {
	if a.InvestmentAmount <= 0 {
		return invalidArgument(errors.New("investment_amount must be positive"))
	}
	if len(a.Sectors) == 0 {
		return invalidArgument(errors.New("sectors must not be empty"))
	}
	for _, sector := range a.Sectors {
		if err := requireText("sectors[]", sector); err != nil {
			return err
		}
	}
	return nil
}

type portfolioData struct {
	RiskTolerance    string
	InvestmentAmount float64
	Sectors          []string
	Companies        []companyMetrics
}

// portfolioPerSector is how many candidates each sector contributes.
const portfolioPerSector = 3

func (s *Service) portfolioRecommendationTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[PortfolioArgs, portfolioData]{
		name:        "portfolio_recommendation",
		description: "Recommend a stock portfolio for a risk tolerance, an investment amount and a list of sectors.",
		system:      systemPortfolio,
		gather: func(ctx context.Context, args PortfolioArgs) (portfolioData, error) {
			var symbols []string
			for _, sector := range args.Sectors {
				picks, err := s.screen(ctx, fmp.ScreenerFilter{Sector: sector, Limit: portfolioPerSector}, "")
				if fmp.IsCallerError(err) {
					s.logger.DebugContext(ctx, "sector without candidates", "sector", sector)
					continue
				}
				if err != nil {
					return portfolioData{}, err
				}
				symbols = append(symbols, picks...)
			}
			companies, err := s.companyMetricsList(ctx, symbols, false)
			if err != nil {
				return portfolioData{}, err
			}
			return portfolioData{
				RiskTolerance:    args.RiskTolerance,
				InvestmentAmount: args.InvestmentAmount,
				Sectors:          args.Sectors,
				Companies:        companies,
			}, nil
		},
		prompt: portfolioPrompt,
	})
}

type healthData struct {
	Company companyMetrics
	EBITDA  float64
	Ratios  healthRatios
}

func (s *Service) financialHealthTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[SymbolArgs, healthData]{
		name:        "financial_health_assessment",
		description: "Assess the financial health of a company: profitability, liquidity, solvency and cash flow.",
		system:      systemFinancialHealth,
		gather: func(ctx context.Context, args SymbolArgs) (healthData, error) {
			var (
				company companyMetrics
				income  *fmp.IncomeStatement
				balance *fmp.BalanceSheet
				cash    *fmp.CashFlow
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				company, err = s.companyMetricsFor(gctx, args.Symbol, false)
				return err
			})
			g.Go(func() (err error) {
				income, err = s.data.IncomeStatement(gctx, args.Symbol)
				return err
			})
			g.Go(func() (err error) {
				balance, err = s.data.BalanceSheet(gctx, args.Symbol)
				return err
			})
			g.Go(func() (err error) {
				cash, err = s.data.CashFlow(gctx, args.Symbol)
				return err
			})
			if err := g.Wait(); err != nil {
				return healthData{}, err
			}
			company.Revenue = income.Revenue
			company.NetIncome = income.NetIncome
			return healthData{
				Company: company,
				EBITDA:  income.EBITDA,
				Ratios:  computeHealthRatios(balance, cash, income),
			}, nil
		},
		prompt: healthPrompt,
	})
}

// HorizonArgs is the input of strategic_investment_analysis.
type HorizonArgs struct {
	Symbol      string `json:"symbol" jsonschema_description:"Stock ticker symbol"`
	TimeHorizon string `json:"time_horizon" jsonschema:"enum=short-term,enum=medium-term,enum=long-term" jsonschema_description:"Investment time horizon"`
}

func (a HorizonArgs) Validate() error { return validSymbol(a.Symbol) }

type strategicData struct {
	Company     companyMetrics
	History     fmp.PriceSummary
	Peers       []string
	TimeHorizon string
}

// peerLimit is the screener size used to find industry peers.
const peerLimit = 5

func (s *Service) strategicInvestmentTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[HorizonArgs, strategicData]{
		name:        "strategic_investment_analysis",
		description: "Perform a strategic investment analysis of a company for a time horizon: history, industry peers, SWOT, risks and a recommendation.",
		system:      systemStrategic,
		gather: func(ctx context.Context, args HorizonArgs) (strategicData, error) {
			var (
				company companyMetrics
				history []fmp.HistoricalPrice
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				company, err = s.companyMetricsFor(gctx, args.Symbol, true)
				return err
			})
			g.Go(func() (err error) {
				history, err = s.data.HistoricalPrices(gctx, args.Symbol, historyDays)
				return err
			})
			if err := g.Wait(); err != nil {
				return strategicData{}, err
			}
			peers, err := s.peers(ctx, company.Industry, company.Symbol, peerLimit)
			if err != nil {
				return strategicData{}, err
			}
			return strategicData{
				Company:     company,
				History:     fmp.Summarize(history),
				Peers:       peers,
				TimeHorizon: args.TimeHorizon,
			}, nil
		},
		prompt: strategicPrompt,
	})
}

// TrendArgs is the input of market_trend_prediction.
type TrendArgs struct {
	Sector    string `json:"sector" jsonschema_description:"Sector name, e.g. Healthcare"`
	Timeframe string `json:"timeframe" jsonschema:"enum=6 months,enum=1 year,enum=3 years,enum=5 years" jsonschema_description:"Prediction timeframe"`
}

func (a TrendArgs) Validate() error { return requireText("sector", a.Sector) }

type trendData struct {
	Sector    string
	Timeframe string
	Companies []companyMetrics
	ETF       string
	ETFTrend  *fmp.PriceSummary
}

// trendSampleSize is how many top companies represent a sector.
const trendSampleSize = 10

func (s *Service) marketTrendTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[TrendArgs, trendData]{
		name:        "market_trend_prediction",
		description: "Predict market trends for a sector over a timeframe, using its top companies and the sector fund price history.",
		system:      systemMarketTrend,
		gather: func(ctx context.Context, args TrendArgs) (trendData, error) {
			symbols, err := s.screen(ctx, fmp.ScreenerFilter{Sector: args.Sector, Limit: trendSampleSize}, "")
			if err != nil {
				return trendData{}, err
			}
			companies, err := s.companyMetricsList(ctx, symbols, false)
			if err != nil {
				return trendData{}, err
			}
			data := trendData{Sector: args.Sector, Timeframe: args.Timeframe, Companies: companies}
			if etf, ok := SectorETF(args.Sector); ok {
				history, err := s.data.HistoricalPrices(ctx, etf, historyDays)
				switch {
				case err == nil:
					summary := fmp.Summarize(history)
					data.ETF, data.ETFTrend = etf, &summary
				case !fmp.IsCallerError(err):
					return trendData{}, err
				}
			}
			return data, nil
		},
		prompt: trendPrompt,
	})
}

type competitiveData struct {
	Target      companyMetrics
	Competitors []companyMetrics
}

func (s *Service) competitiveAnalysisTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[SymbolArgs, competitiveData]{
		name:        "company_competitive_analysis",
		description: "Perform a competitive analysis of a company against the largest companies of its industry.",
		system:      systemCompetitive,
		gather: func(ctx context.Context, args SymbolArgs) (competitiveData, error) {
			target, err := s.companyMetricsFor(ctx, args.Symbol, true)
			if err != nil {
				return competitiveData{}, err
			}
			peers, err := s.peers(ctx, target.Industry, target.Symbol, peerLimit)
			if err != nil {
				return competitiveData{}, err
			}
			data := competitiveData{Target: target}
			if len(peers) == 0 {
				return data, nil
			}
			competitors, err := s.companyMetricsList(ctx, peers, true)
			if err != nil && !fmp.IsCallerError(err) {
				return competitiveData{}, err
			}
			data.Competitors = competitors
			return data, nil
		},
		prompt: competitivePrompt,
	})
}

// ComparativeArgs is the input of company_comparative_analysis.
type ComparativeArgs struct {
	Symbol1     string `json:"symbol1" jsonschema_description:"First stock ticker symbol"`
	Symbol2     string `json:"symbol2" jsonschema_description:"Second stock ticker symbol"`
	TimeHorizon string `json:"time_horizon" jsonschema_description:"Time horizon of the comparison, e.g. 3 years"`
}

func (a ComparativeArgs) Validate() error {
	if err := validSymbol(a.Symbol1); err != nil {
		return err
	}
	if err := validSymbol(a.Symbol2); err != nil {
		return err
	}
	return requireText("time_horizon", a.TimeHorizon)
}

type comparedCompany struct {
	companyMetrics
	History fmp.PriceSummary `json:"price_history"`
}

type comparativeData struct {
	Company1    comparedCompany
	Company2    comparedCompany
	TimeHorizon string
}

func (s *Service) comparativeAnalysisTool() (finagent.Tool, error) {
	return newAnalysisTool(s, analysis[ComparativeArgs, comparativeData]{
		name:        "company_comparative_analysis",
		description: "Compare two companies, including a competitive analysis and their investment potential over a time horizon.",
		system:      systemComparative,
		gather: func(ctx context.Context, args ComparativeArgs) (comparativeData, error) {
			var c1, c2 comparedCompany
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				c1, err = s.comparedCompany(gctx, args.Symbol1)
				return err
			})
			g.Go(func() (err error) {
				c2, err = s.comparedCompany(gctx, args.Symbol2)
				return err
			})
			if err := g.Wait(); err != nil {
				return comparativeData{}, err
			}
			return comparativeData{Company1: c1, Company2: c2, TimeHorizon: args.TimeHorizon}, nil
		},
		prompt: comparativePrompt,
	})
}

func (s *Service) comparedCompany(ctx context.Context, symbol string) (comparedCompany, error) {
	var (
		m       companyMetrics
		history []fmp.HistoricalPrice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		m, err = s.companyMetricsFor(gctx, symbol, true)
		return err
	})
	g.Go(func() (err error) {
		history, err = s.data.HistoricalPrices(gctx, symbol, historyDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return comparedCompany{}, err
	}
	return comparedCompany{companyMetrics: m, History: fmp.Summarize(history)}, nil
}
