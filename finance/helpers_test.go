package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/finagent"
	"github.com/skosovsky/finagent/fmp"
	"github.com/skosovsky/finagent/fmp/fmptest"
	"github.com/skosovsky/finagent/llm/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type company struct {
	symbol, name, sector, industry string
	price, pe, beta, marketCap     float64
	revenue, netIncome             float64
}

var (
	apple     = company{"AAPL", "Apple Inc.", "Technology", "Consumer Electronics", 190.5, 29.6, 1.24, 2.95e12, 383.3e9, 97.0e9}
	sony      = company{"SONY", "Sony Group Corporation", "Technology", "Consumer Electronics", 85.2, 16.1, 0.88, 1.05e11, 88.0e9, 6.7e9}
	microsoft = company{"MSFT", "Microsoft Corporation", "Technology", "Software - Infrastructure", 415.1, 36.2, 0.89, 3.08e12, 245.1e9, 88.1e9}
	nvidia    = company{"NVDA", "NVIDIA Corporation", "Technology", "Semiconductors", 880.0, 72.4, 1.68, 2.2e12, 60.9e9, 29.8e9}
)

func seed(srv *fmptest.Server, companies ...company) {
	for _, c := range companies {
		srv.JSON("/quote-order/"+c.symbol, []fmp.Quote{{Symbol: c.symbol, Name: c.name, Price: c.price, PE: c.pe, EPS: c.price / c.pe, MarketCap: c.marketCap}})
		srv.JSON("/profile/"+c.symbol, []fmp.Profile{{Symbol: c.symbol, CompanyName: c.name, Sector: c.sector, Industry: c.industry, MarketCap: c.marketCap, Beta: c.beta, Price: c.price}})
		srv.JSON("/income-statement/"+c.symbol, []fmp.IncomeStatement{{Date: "2024-09-28", Revenue: c.revenue, NetIncome: c.netIncome, EBITDA: c.netIncome * 1.4}})
	}
}

func seedHistory(srv *fmptest.Server, symbol string, closes ...float64) {
	bars := make([]fmp.HistoricalPrice, len(closes))
	for i, c := range closes {
		bars[i] = fmp.HistoricalPrice{Date: fmt.Sprintf("2024-03-%02d", 28-i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	srv.JSON("/historical-price-full/"+symbol, map[string]any{"symbol": symbol, "historical": bars})
}

func seedScreener(srv *fmptest.Server, key string, symbols ...string) {
	rows := make([]fmp.ScreenerResult, len(symbols))
	for i, s := range symbols {
		rows[i] = fmp.ScreenerResult{Symbol: s}
	}
	srv.JSON("/stock-screener?"+key, rows)
}

type fixture struct {
	srv      *fmptest.Server
	provider *mock.Provider
	reg      *finagent.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		srv:      fmptest.New(t),
		provider: &mock.Provider{Fallback: &mock.Step{Response: mock.Text("model analysis")}},
		reg:      finagent.NewRegistry(),
	}
	require.NoError(t, Register(f.reg, f.srv.Client(t), f.provider))
	return f
}

func (f *fixture) call(t *testing.T, name, args string) finagent.ToolResult {
	t.Helper()
	return f.reg.Execute(context.Background(), finagent.ToolCall{ID: "call_1", ToolName: name, Args: json.RawMessage(args)})
}

// lastPrompt returns the system and user text of the most recent analysis model call.
func (f *fixture) lastPrompt(t *testing.T) (system, user string) {
	t.Helper()
	calls := f.provider.Calls()
	require.NotEmpty(t, calls, "no model call recorded")
	req := calls[len(calls)-1].Req
	require.Len(t, req.Messages, 1)
	return req.SystemPrompt, req.Messages[0].Content
}
