package market

import "strings"

// DefaultSymbols is the built-in watch universe used when no other universe
// resolves to anything.
var DefaultSymbols = []string{
	"005930.KS",
	"000660.KS",
	"035420.KS",
	"051910.KS",
	"068270.KS",
	"207940.KS",
	"035720.KS",
	"105560.KS",
	"096770.KQ",
	"066570.KS",
	"005380.KS",
	"000270.KS",
	"302440.KS",
	"259960.KS",
	"326030.KS",
}

var symbolNames = map[string]string{
	"005930.KS": "Samsung Electronics",
	"000660.KS": "SK hynix",
	"035420.KS": "NAVER",
	"051910.KS": "LG Chem",
	"068270.KS": "Celltrion",
	"207940.KS": "Samsung Biologics",
	"035720.KS": "Kakao",
	"105560.KS": "KB Financial Group",
	"096770.KQ": "SK Innovation",
	"066570.KS": "LG Electronics",
	"005380.KS": "Hyundai Motor",
	"000270.KS": "Kia",
	"302440.KS": "SK Bioscience",
	"259960.KS": "Krafton",
	"326030.KS": "SK Biopharm",
}

// Universe names understood by GetUniverse implementations.
const (
	UniverseKOSPI  = "KOSPI_TOP200"
	UniverseKOSDAQ = "KOSDAQ_TOP150"
	UniverseCustom = "CUSTOM"
)

// Name returns the built-in display name for a symbol, or "".
func Name(symbol string) string {
	return symbolNames[symbol]
}

// Code strips any exchange suffix: "005930.KS" -> "005930".
func Code(symbol string) string {
	code, _, _ := strings.Cut(strings.TrimSpace(symbol), ".")
	return code
}
