package classifier

// symbol.go — extracción del símbolo de activo desde un título libre.
//
// La tabla es una lista ordenada de (patrones, símbolo canónico) evaluada
// first-match-wins: los activos más comunes van primero. Todos los patrones
// usan word boundaries — un substring a secas está prohibido porque, p.ej.,
// "Canada" contiene "ada" y no debe resolver a ADA.

import "regexp"

// symbolRule es una regla (predicados, resultado) de la tabla ordenada.
type symbolRule struct {
	patterns []*regexp.Regexp
	symbol   string
}

// wordPatterns compila cada alias como matcher case-insensitive con
// word boundaries.
func wordPatterns(aliases ...string) []*regexp.Regexp {
	ps := make([]*regexp.Regexp, len(aliases))
	for i, a := range aliases {
		ps[i] = regexp.MustCompile(`(?i)\b` + a + `\b`)
	}
	return ps
}

// symbolRules es la tabla de activos soportados, en orden de prioridad.
// BNB no lleva alias "binance" para no matchear dentro de "Airbnb".
var symbolRules = []symbolRule{
	{wordPatterns(`btc`, `bitcoin`), "BTC/USD"},
	{wordPatterns(`eth`, `ethereum`), "ETH/USD"},
	{wordPatterns(`sol`, `solana`), "SOL/USD"},
	{wordPatterns(`link`, `chainlink`), "LINK/USD"},
	{wordPatterns(`doge`, `dogecoin`), "DOGE/USD"},
	{wordPatterns(`avax`, `avalanche`), "AVAX/USD"},
	{wordPatterns(`ada`, `cardano`), "ADA/USD"},
	{wordPatterns(`dot`, `polkadot`), "DOT/USD"},
	{wordPatterns(`matic`, `polygon`), "MATIC/USD"},
	{wordPatterns(`xrp`, `ripple`), "XRP/USD"},
	{wordPatterns(`bnb`), "BNB/USD"},
	{wordPatterns(`trx`, `tron`), "TRX/USD"},
	{wordPatterns(`ltc`, `litecoin`), "LTC/USD"},
	{wordPatterns(`bch`, `bitcoin\s+cash`), "BCH/USD"},
	{wordPatterns(`xlm`, `stellar`), "XLM/USD"},
	{wordPatterns(`algo`, `algorand`), "ALGO/USD"},
	{wordPatterns(`atom`, `cosmos`), "ATOM/USD"},
	{wordPatterns(`fil`, `filecoin`), "FIL/USD"},
	{wordPatterns(`near`), "NEAR/USD"},
	{wordPatterns(`ftm`, `fantom`), "FTM/USD"},
}

// ExtractSymbol devuelve el símbolo canónico ("BTC/USD") del primer activo
// que matchee en el texto, o false si ninguno lo hace. La ausencia de match
// es un resultado esperado, no un error.
func ExtractSymbol(text string) (string, bool) {
	for _, rule := range symbolRules {
		for _, p := range rule.patterns {
			if p.MatchString(text) {
				return rule.symbol, true
			}
		}
	}
	return "", false
}

// HasKnownAsset devuelve true si el texto menciona algún activo de la tabla.
func HasKnownAsset(text string) bool {
	_, ok := ExtractSymbol(text)
	return ok
}

// BaseSymbol devuelve la parte base de un símbolo canónico: "BTC/USD" → "BTC".
func BaseSymbol(symbol string) string {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' {
			return symbol[:i]
		}
	}
	return symbol
}
