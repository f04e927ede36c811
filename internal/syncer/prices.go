package syncer

// prices.go — parsing del vector de precios y derivación de probabilidades.

import (
	"encoding/json"
	"math"
	"strconv"
)

// ParseOutcomePrices extrae los dos primeros precios del vector crudo
// ("[\"0.6\",\"0.4\"]"). Acepta elementos string o numéricos. Devuelve
// ok=false ante cualquier payload del que no salgan dos precios.
func ParseOutcomePrices(raw string) (yes, no float64, ok bool) {
	if raw == "" {
		return 0, 0, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil || len(elems) < 2 {
		return 0, 0, false
	}

	yes, ok = parsePriceElem(elems[0])
	if !ok {
		return 0, 0, false
	}
	no, ok = parsePriceElem(elems[1])
	if !ok {
		return 0, 0, false
	}
	return yes, no, true
}

func parsePriceElem(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	return 0, false
}

// DeriveProbabilities normaliza el par de precios a porcentajes enteros y
// al precio inicial. Si la suma es cero o algún precio es negativo, cae al
// default 50/50 con precio 0.5.
func DeriveProbabilities(yes, no float64) (yesPct, noPct int, initial float64) {
	sum := yes + no
	if sum == 0 || yes < 0 || no < 0 {
		return 50, 50, 0.5
	}
	yesPct = int(math.Round(yes / sum * 100))
	if yesPct < 0 {
		yesPct = 0
	}
	if yesPct > 100 {
		yesPct = 100
	}
	return yesPct, 100 - yesPct, yes
}
