package classifier

// period.go — extracción del periodo de recurrencia en minutos.
//
// Las reglas forman una lista ordenada (predicado, minutos) evaluada en
// orden fijo para que la precedencia sea testeable en aislamiento:
//   - "15"+"min" gana antes que cualquier regla de horas o días
//   - "4-hour"/"4h" se distingue de "hourly" y no lo absorbe "daily"
//   - monthly antes que weekly antes que daily antes que hourly
// La salida está restringida al conjunto cerrado de periodos soportados.

import "strings"

// Periodos soportados, en minutos.
const (
	Period15Min   = 15
	PeriodHourly  = 60
	Period4Hour   = 240
	PeriodDaily   = 1440
	PeriodWeekly  = 10080
	PeriodMonthly = 43200
)

// supportedPeriods es el conjunto cerrado de periodos que el sistema acepta.
var supportedPeriods = map[int]bool{
	Period15Min:   true,
	PeriodHourly:  true,
	Period4Hour:   true,
	PeriodDaily:   true,
	PeriodWeekly:  true,
	PeriodMonthly: true,
}

// IsSupportedPeriod devuelve true si minutes pertenece al conjunto soportado.
func IsSupportedPeriod(minutes int) bool {
	return supportedPeriods[minutes]
}

// periodRule es una regla (predicado, minutos) de la tabla ordenada.
type periodRule struct {
	name    string
	matches func(s string) bool
	minutes int
}

// periodRules se evalúa en orden sobre el texto en minúsculas.
var periodRules = []periodRule{
	{"15-minute", func(s string) bool {
		return strings.Contains(s, "15") &&
			(strings.Contains(s, "min") || strings.Contains(s, "minute") || strings.Contains(s, "15m"))
	}, Period15Min},
	{"4-hour", func(s string) bool {
		return strings.Contains(s, "4h") ||
			(strings.Contains(s, "4") && strings.Contains(s, "hour"))
	}, Period4Hour},
	{"monthly", func(s string) bool {
		return strings.Contains(s, "monthly") ||
			(strings.Contains(s, "month") && !strings.Contains(s, "weekly"))
	}, PeriodMonthly},
	{"weekly", func(s string) bool {
		return strings.Contains(s, "weekly") || strings.Contains(s, "week")
	}, PeriodWeekly},
	{"daily", func(s string) bool {
		return strings.Contains(s, "daily") ||
			(strings.Contains(s, "day") && !strings.Contains(s, "week") && !strings.Contains(s, "month"))
	}, PeriodDaily},
	{"hourly", func(s string) bool {
		return strings.Contains(s, "hourly") ||
			(strings.Contains(s, "hour") && !strings.Contains(s, "4"))
	}, PeriodHourly},
}

// recurrenceMinutes mapea el campo recurrence explícito de una serie.
var recurrenceMinutes = map[string]int{
	"hourly":  PeriodHourly,
	"daily":   PeriodDaily,
	"weekly":  PeriodWeekly,
	"monthly": PeriodMonthly,
}

// ExtractPeriod devuelve el periodo en minutos extraído del texto, o false
// si ningún patrón matchea. Solo produce valores del conjunto soportado.
func ExtractPeriod(text string) (int, bool) {
	s := strings.ToLower(text)
	for _, rule := range periodRules {
		if rule.matches(s) {
			return rule.minutes, true
		}
	}
	return 0, false
}

// ExtractSeriesPeriod extrae el periodo de un descriptor de serie: primero
// del texto título+slug, con fallback al campo recurrence explícito.
func ExtractSeriesPeriod(title, slug, recurrence string) (int, bool) {
	if minutes, ok := ExtractPeriod(title + " " + slug); ok {
		return minutes, true
	}
	if minutes, ok := recurrenceMinutes[strings.ToLower(recurrence)]; ok {
		return minutes, true
	}
	return 0, false
}
