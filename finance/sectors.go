package finance

import "strings"

// sectorETFs maps FMP sector names to the SPDR sector fund tracking them.
var sectorETFs = map[string]string{
	"technology":             "XLK",
	"financial services":     "XLF",
	"financial":              "XLF",
	"healthcare":             "XLV",
	"energy":                 "XLE",
	"consumer cyclical":      "XLY",
	"consumer defensive":     "XLP",
	"industrials":            "XLI",
	"utilities":              "XLU",
	"basic materials":        "XLB",
	"real estate":            "XLRE",
	"communication services": "XLC",
}

// SectorETF returns the sector fund for sector, matched case-insensitively.
func SectorETF(sector string) (string, bool) {
	etf, ok := sectorETFs[strings.ToLower(strings.TrimSpace(sector))]
	return etf, ok
}
