package finance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skosovsky/finagent/fmp"
)

// System messages of the orchestration tools.
const (
	systemSectorAnalysis  = "You are a financial analyst expert at sector analysis."
	systemPortfolio       = "You are a financial advisor expert at creating portfolio recommendations."
	systemFinancialHealth = "You are a financial analyst expert at assessing company financial health."
	systemStrategic       = "You are a senior investment strategist with expertise in long-term financial analysis and investment recommendations."
	systemMarketTrend     = "You are a market analyst specializing in sector trends and long-term market predictions."
	systemCompetitive     = "You are a strategic consultant specializing in competitive analysis and corporate strategy."
	systemComparative     = "You are a financial analyst expert in comparative company analysis and investment potential assessment."
)

func sectorPrompt(d sectorData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following top %d companies in the %s sector:\n\n", d.TopN, d.Sector)
	writeJSON(&sb, d.Companies)
	sb.WriteString(`
Please provide a comprehensive sector analysis, including:
1. Overall sector performance and trends
2. Comparison of key players (market cap, revenue, profitability)
3. Sector-specific metrics and their importance
4. Future outlook and potential challenges for the sector

Be sure to highlight any standout companies or notable trends.
`)
	return sb.String()
}

func portfolioPrompt(d portfolioData) string {
	var sb strings.Builder
	sb.WriteString("Create a portfolio recommendation based on the following parameters:\n\n")
	fmt.Fprintf(&sb, "Risk Tolerance: %s\n", d.RiskTolerance)
	fmt.Fprintf(&sb, "Investment Amount: $%.2f\n", d.InvestmentAmount)
	fmt.Fprintf(&sb, "Sectors of Interest: %s\n\n", strings.Join(d.Sectors, ", "))
	sb.WriteString("Consider the following companies:\n")
	writeJSON(&sb, d.Companies)
	sb.WriteString(`
Please provide a comprehensive portfolio recommendation, including:
1. Asset allocation strategy based on risk tolerance
2. Specific stock recommendations with rationale
3. Diversification approach across sectors
4. Potential risks and mitigation strategies

Ensure the recommendation aligns with the given risk tolerance and investment amount.
`)
	return sb.String()
}

func healthPrompt(d healthData) string {
	c := d.Company
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conduct a financial health assessment for %s (%s) based on the following data:\n\n", c.Name, c.Symbol)
	fmt.Fprintf(&sb, "Stock Price: $%.2f\n", c.Price)
	fmt.Fprintf(&sb, "P/E Ratio: %.2f\n", c.PE)
	fmt.Fprintf(&sb, "Market Cap: $%.0f\n", c.MarketCap)
	fmt.Fprintf(&sb, "Beta: %.2f\n\n", c.Beta)
	sb.WriteString("Income Statement:\n")
	fmt.Fprintf(&sb, "Revenue: $%.0f\n", c.Revenue)
	fmt.Fprintf(&sb, "Net Income: $%.0f\n", c.NetIncome)
	fmt.Fprintf(&sb, "EBITDA: $%.0f\n\n", d.EBITDA)
	sb.WriteString("Key Ratios:\n")
	fmt.Fprintf(&sb, "Current Ratio: %s\n", formatRatio(d.Ratios.CurrentRatio))
	fmt.Fprintf(&sb, "Debt-to-Equity Ratio: %s\n", formatRatio(d.Ratios.DebtToEquity))
	fmt.Fprintf(&sb, "Return on Equity: %s\n", formatRatio(d.Ratios.ROE))
	fmt.Fprintf(&sb, "Free Cash Flow: $%.0f\n", d.Ratios.FreeCashFlow)
	sb.WriteString(`
Please provide a comprehensive financial health assessment, including:
1. Profitability analysis
2. Liquidity and solvency evaluation
3. Efficiency and performance metrics
4. Cash flow analysis
5. Overall financial strength and potential red flags

Consider industry standards and provide context for the financial metrics.
`)
	return sb.String()
}

func strategicPrompt(d strategicData) string {
	c := d.Company
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conduct a strategic investment analysis for %s (%s) with a %s time horizon.\n\n", c.Name, c.Symbol, d.TimeHorizon)
	sb.WriteString("Company data:\n")
	writeJSON(&sb, c)
	sb.WriteString("\nPrice history over the last year:\n")
	writeHistory(&sb, d.History)
	fmt.Fprintf(&sb, "\nIndustry: %s\nIndustry peers: %s\n", c.Industry, listOrNone(d.Peers))
	fmt.Fprintf(&sb, `
Follow these steps:
1. Company Overview: analyze the current financial position (market cap, P/E ratio, revenue, net income).
2. Historical Performance: identify significant trends or patterns in the price history.
3. Industry Analysis: compare the company with its industry peers.
4. SWOT Analysis: strengths, weaknesses, opportunities and threats.
5. Future Outlook: project scenarios over the %[1]s horizon, considering industry trends and economic factors.
6. Risk Assessment: identify the risks of investing in this company over the %[1]s horizon.
7. Investment Recommendation: give a detailed recommendation with upsides, downsides and triggers to watch.

Each step should build on the previous ones. Provide specific data points and reasoning for each conclusion.
`, d.TimeHorizon)
	return sb.String()
}

func trendPrompt(d trendData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conduct a market trend prediction analysis for the %s sector over the next %s.\n\n", d.Sector, d.Timeframe)
	fmt.Fprintf(&sb, "Top %d companies in the sector:\n", len(d.Companies))
	writeJSON(&sb, d.Companies)
	if d.ETFTrend != nil {
		fmt.Fprintf(&sb, "\nSector fund %s price history over the last year:\n", d.ETF)
		writeHistory(&sb, *d.ETFTrend)
	} else {
		sb.WriteString("\nNo sector fund price history is available; infer the trend from the companies above.\n")
	}
	fmt.Fprintf(&sb, `
Follow these steps:
1. Sector Overview: analyze the current state of the %[1]s sector.
2. Historical Trend Analysis: identify trends, cycles or patterns.
3. Company Comparison: identify standout performers and laggards.
4. Macroeconomic Factors that could impact the sector over the next %[2]s.
5. Technological and Regulatory Trends affecting the sector.
6. Market Sentiment: gauge current sentiment and how it might evolve.
7. Scenario Planning: best-case, worst-case and most likely scenarios over the next %[2]s.
8. Key Indicators investors should monitor.
9. Investment Implications for investors interested in the %[1]s sector.

Each step should build on the previous ones. Provide specific data points and reasoning for each conclusion.
`, d.Sector, d.Timeframe)
	return sb.String()
}

func competitivePrompt(d competitiveData) string {
	t := d.Target
	names := make([]string, 0, len(d.Competitors))
	for _, c := range d.Competitors {
		names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Symbol))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conduct a comprehensive competitive analysis for %s (%s) in the %s industry.\n\n", t.Name, t.Symbol, t.Industry)
	sb.WriteString("Company data:\n")
	writeJSON(&sb, t)
	fmt.Fprintf(&sb, "\nCompetitors: %s\n", listOrNone(names))
	if len(d.Competitors) > 0 {
		writeJSON(&sb, d.Competitors)
	}
	fmt.Fprintf(&sb, `
Follow these steps:
1. Company Overview: market position, key financials and business model of %[1]s.
2. Competitor Identification: analyze the competitors listed above.
3. Comparative Financial Analysis: market cap, revenue, net income, P/E ratio and beta across all companies.
4. Market Share Analysis: estimate market share from the available financial data.
5. Product/Service Comparison: unique selling points and areas of overlap.
6. SWOT Analysis for %[1]s within its competitive landscape.
7. Competitive Strategies %[1]s could employ.
8. Future Outlook of the %[2]s industry over the next 3-5 years.
9. Key Success Factors in this landscape.
10. Strategic Recommendations for %[1]s.

Each step should build on the previous ones. Use specific data points and provide reasoning for each conclusion.
`, t.Name, t.Industry)
	return sb.String()
}

func comparativePrompt(d comparativeData) string {
	s1, s2 := d.Company1.Symbol, d.Company2.Symbol
	var sb strings.Builder
	fmt.Fprintf(&sb, "Perform a comparative analysis of %s and %s over a %s time horizon.\n", s1, s2, d.TimeHorizon)
	sb.WriteString("Include a competitive analysis and assessment of investment potential for both companies.\n\n")
	fmt.Fprintf(&sb, "Company 1 (%s) data:\n", s1)
	writeJSON(&sb, d.Company1)
	fmt.Fprintf(&sb, "\nCompany 2 (%s) data:\n", s2)
	writeJSON(&sb, d.Company2)
	fmt.Fprintf(&sb, `
Provide a comprehensive analysis covering:
1. Competitive position of both companies
2. Financial performance comparison
3. Growth prospects over the %s time horizon
4. Potential risks and opportunities
5. Overall investment potential comparison
`, d.TimeHorizon)
	return sb.String()
}

func writeJSON(sb *strings.Builder, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(sb, "%+v\n", v)
		return
	}
	sb.Write(b)
	sb.WriteByte('\n')
}

func writeHistory(sb *strings.Builder, h fmp.PriceSummary) {
	if h.Days == 0 {
		sb.WriteString("not available\n")
		return
	}
	fmt.Fprintf(sb, "%s to %s (%d trading days): close %.2f -> %.2f (%+.2f%%), high %.2f, low %.2f\n",
		h.From, h.To, h.Days, h.FirstClose, h.LastClose, h.ChangePercent, h.High, h.Low)
}

func formatRatio(r *float64) string {
	if r == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *r)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none found"
	}
	return strings.Join(items, ", ")
}
