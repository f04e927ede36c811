package classifier

// pattern.go — normalización de un título concreto a un patrón de plantilla.
//
// Sustituye literales de precio y de fecha/hora por placeholders, dejando
// el resto del texto intacto. El orden de sustitución importa: los rangos
// horarios se reemplazan antes que las horas sueltas para no dejar
// sustituciones parciales malformadas. Para un mismo input el output es
// siempre el mismo.

import (
	"regexp"
	"strings"
)

// PlaceholderAsset se sustituye por el símbolo base una vez que el caller
// conoce el activo del listing.
const PlaceholderAsset = "[Asset]"

// upOrDownPattern es el patrón canónico de los mercados direccionales.
const upOrDownPattern = "Will [Asset] be above $[StrikePrice] at [EndTime]?"

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December`

// aliasRule normaliza un alias de activo a su símbolo canónico base.
type aliasRule struct {
	re        *regexp.Regexp
	canonical string
}

var aliasRules = []aliasRule{
	{regexp.MustCompile(`(?i)\bbitcoin\b`), "BTC"},
	{regexp.MustCompile(`(?i)\bethereum\b`), "ETH"},
	{regexp.MustCompile(`(?i)\bsolana\b`), "SOL"},
	{regexp.MustCompile(`(?i)\bchainlink\b`), "LINK"},
	{regexp.MustCompile(`(?i)\bdogecoin\b`), "DOGE"},
	{regexp.MustCompile(`(?i)\bavalanche\b`), "AVAX"},
	{regexp.MustCompile(`(?i)\bcardano\b`), "ADA"},
	{regexp.MustCompile(`(?i)\bpolkadot\b`), "DOT"},
	{regexp.MustCompile(`(?i)\bpolygon\b`), "MATIC"},
	{regexp.MustCompile(`(?i)\bripple\b`), "XRP"},
	{regexp.MustCompile(`(?i)\bbinance coin\b`), "BNB"},
}

var (
	priceRe = regexp.MustCompile(`\$\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

	// Fecha con día y año opcional: "April 12", "October 24, 2025".
	monthDayRe = regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\s+\d{1,2}(?:,\s+\d{4})?`)

	// Rango horario: "10:15AM-10:30AM". Va antes que las horas sueltas.
	timeRangeRe = regexp.MustCompile(`(?i)\d{1,2}:\d{2}[AP]M-\d{1,2}:\d{2}[AP]M`)

	// Hora suelta con sufijos opcionales: "4:00 PM ET", "10:15AM".
	timeWithTZRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:AM|PM)?\s*(?:ET|EST|EDT|UTC)?\b`)
	timeRe       = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:AM|PM)?\b`)

	// Mes suelto, para los formatos tipo hit-price ("in February").
	monthRe = regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\b`)

	spacesRe = regexp.MustCompile(`\s+`)
)

// BuildTitlePattern convierte un título concreto en su patrón parametrizado:
//
//	"Will BTC be above $98,000 at 4:00 PM?" → "Will BTC be above $[StrikePrice] at [EndTime]?"
//	"What price will Bitcoin hit in February?" → "What price will BTC hit in [EndTime]?"
//
// Los títulos "up or down" colapsan al patrón canónico con [Asset]; el
// caller lo sustituye con el símbolo que extrajo por su lado.
func BuildTitlePattern(title string) string {
	pattern := title
	for _, rule := range aliasRules {
		pattern = rule.re.ReplaceAllLiteralString(pattern, rule.canonical)
	}

	lower := strings.ToLower(title)

	if strings.Contains(lower, "up or down") {
		return upOrDownPattern
	}

	if strings.Contains(lower, "hit") && strings.Contains(lower, "price") {
		pattern = monthRe.ReplaceAllLiteralString(pattern, "[EndTime]")
		return collapseSpaces(pattern)
	}

	pattern = priceRe.ReplaceAllLiteralString(pattern, "$[StrikePrice]")
	pattern = monthDayRe.ReplaceAllLiteralString(pattern, "[EndTime]")
	pattern = timeRangeRe.ReplaceAllLiteralString(pattern, "[EndTime]")
	pattern = timeWithTZRe.ReplaceAllLiteralString(pattern, "[EndTime]")
	pattern = timeRe.ReplaceAllLiteralString(pattern, "[EndTime]")
	pattern = monthRe.ReplaceAllLiteralString(pattern, "[EndTime]")

	return collapseSpaces(pattern)
}

// CurrencyAmounts devuelve los literales de precio ("$98,000") presentes en
// el texto. El harvester los usa para detectar estructuralmente las series
// multi-strike: más de un strike distinto entre los listings muestreados.
func CurrencyAmounts(text string) []string {
	return priceRe.FindAllString(text, -1)
}

// SubstituteAsset reemplaza el placeholder [Asset] por el símbolo base.
func SubstituteAsset(pattern, symbol string) string {
	return strings.ReplaceAll(pattern, PlaceholderAsset, BaseSymbol(symbol))
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}
