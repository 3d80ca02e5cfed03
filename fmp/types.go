package fmp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Quote is the current trading data for one symbol (/quote-order).
type Quote struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	Price                float64 `json:"price"`
	Volume               float64 `json:"volume"`
	PriceAvg50           float64 `json:"priceAvg50"`
	PriceAvg200          float64 `json:"priceAvg200"`
	EPS                  float64 `json:"eps"`
	PE                   float64 `json:"pe"`
	MarketCap            float64 `json:"marketCap"`
	EarningsAnnouncement string  `json:"earningsAnnouncement"`
}

// Profile is the company profile for one symbol (/profile).
type Profile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	MarketCap   float64 `json:"mktCap"`
	Industry    string  `json:"industry"`
	Sector      string  `json:"sector"`
	Website     string  `json:"website"`
	Beta        float64 `json:"beta"`
	Price       float64 `json:"price"`
}

// IncomeStatement is the latest annual income statement (/income-statement).
type IncomeStatement struct {
	Date        string  `json:"date"`
	Revenue     float64 `json:"revenue"`
	GrossProfit float64 `json:"grossProfit"`
	NetIncome   float64 `json:"netIncome"`
	EBITDA      float64 `json:"ebitda"`
	EPS         float64 `json:"eps"`
	EPSDiluted  float64 `json:"epsdiluted"`
}

// BalanceSheet is the latest balance sheet statement (/balance-sheet-statement).
type BalanceSheet struct {
	Date                    string  `json:"date"`
	TotalCurrentAssets      float64 `json:"totalCurrentAssets"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
	TotalLiabilities        float64 `json:"totalLiabilities"`
	TotalStockholdersEquity float64 `json:"totalStockholdersEquity"`
	TotalDebt               float64 `json:"totalDebt"`
	CashAndCashEquivalents  float64 `json:"cashAndCashEquivalents"`
}

// CashFlow is the latest cash flow statement (/cash-flow-statement).
type CashFlow struct {
	Date               string  `json:"date"`
	OperatingCashFlow  float64 `json:"operatingCashFlow"`
	CapitalExpenditure float64 `json:"capitalExpenditure"`
}

// ScreenerFilter selects companies from /stock-screener. At least one of Sector and Industry is required.
type ScreenerFilter struct {
	Sector   string
	Industry string
	Limit    int
}

// ScreenerResult is one row of a screener response.
type ScreenerResult struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	MarketCap   float64 `json:"marketCap"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Beta        float64 `json:"beta"`
	Price       float64 `json:"price"`
}

// HistoricalPrice is one daily bar. The provider returns bars newest first.
type HistoricalPrice struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type historicalResponse struct {
	Symbol     string            `json:"symbol"`
	Historical []HistoricalPrice `json:"historical"`
}

// UnmarshalJSON accepts the empty array FMP sends instead of an object for
// unknown symbols; it decodes to a response without bars.
func (r *historicalResponse) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(b, &rows); err != nil {
			return err
		}
		if len(rows) > 0 {
			return fmt.Errorf("historical prices: unexpected array of %d elements", len(rows))
		}
		*r = historicalResponse{}
		return nil
	}
	type plain historicalResponse
	return json.Unmarshal(b, (*plain)(r))
}

// PriceSummary condenses a price history for prompts.
type PriceSummary struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Days          int     `json:"days"`
	FirstClose    float64 `json:"first_close"`
	LastClose     float64 `json:"last_close"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	ChangePercent float64 `json:"change_percent"`
}

// Summarize reduces newest-first bars to a PriceSummary. An empty slice yields the zero value.
func Summarize(prices []HistoricalPrice) PriceSummary {
	if len(prices) == 0 {
		return PriceSummary{}
	}
	newest, oldest := prices[0], prices[len(prices)-1]
	s := PriceSummary{
		From:       oldest.Date,
		To:         newest.Date,
		Days:       len(prices),
		FirstClose: oldest.Close,
		LastClose:  newest.Close,
		High:       newest.High,
		Low:        newest.Low,
	}
	for _, p := range prices {
		s.High = max(s.High, p.High)
		s.Low = min(s.Low, p.Low)
	}
	if oldest.Close != 0 {
		s.ChangePercent = (newest.Close - oldest.Close) / oldest.Close * 100
	}
	return s
}
