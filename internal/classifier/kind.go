package classifier

// kind.go — clasificación del tipo estructural de un listing.
//
// Precedencia fija: NEG_RISK > MULTI_STRIKES > HIT_PRICE > UP_OR_DOWN
// (default). La señal estructural multi-strike la aporta el harvester por
// separado y puede subir la clasificación textual.

import (
	"strings"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

// kindRule es una regla (predicado, kind) de la tabla ordenada.
// El predicado recibe el título del listing y el combinado
// título+serie, ambos en minúsculas.
type kindRule struct {
	matches func(title, combined string) bool
	kind    domain.TemplateKind
}

var kindRules = []kindRule{
	{func(_, combined string) bool {
		return strings.Contains(combined, "neg risk") || strings.Contains(combined, "negrisk")
	}, domain.KindNegRisk},
	{func(_, combined string) bool {
		return strings.Contains(combined, "multi strikes") ||
			strings.Contains(combined, "multi-strikes") ||
			strings.Contains(combined, "strikes")
	}, domain.KindMultiStrikes},
	{func(title, _ string) bool {
		return strings.Contains(title, "hit") &&
			(strings.Contains(title, "price") || strings.Contains(title, "what price"))
	}, domain.KindHitPrice},
	{func(title, _ string) bool {
		return strings.Contains(title, "up or down") ||
			strings.Contains(title, "above") ||
			strings.Contains(title, "below")
	}, domain.KindUpOrDown},
}

// ClassifyKind devuelve el kind del listing según la tabla de precedencia.
// Si ninguna regla matchea, el default es UP_OR_DOWN.
func ClassifyKind(title, seriesTitle string) domain.TemplateKind {
	lowerTitle := strings.ToLower(title)
	combined := lowerTitle + " " + strings.ToLower(seriesTitle)

	for _, rule := range kindRules {
		if rule.matches(lowerTitle, combined) {
			return rule.kind
		}
	}
	return domain.KindUpOrDown
}

// IsUpOrDownSeries detecta series textualmente direccionales ("up or down").
// Lo usa el harvester para el invariante de doble vía: las plantillas
// direccionales de periodo estándar pertenecen a la factory interna y el
// harvester nunca debe crearlas ni actualizarlas.
func IsUpOrDownSeries(seriesTitle string) bool {
	s := strings.ToLower(seriesTitle)
	return strings.Contains(s, "up or down") || strings.Contains(s, "up/down")
}
