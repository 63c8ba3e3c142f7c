package discount

import "strings"

// codes maps promotional codes to percentage-off rates. Fixed at build
// time; not mutable at runtime.
var codes = map[string]float64{
	"BIBLIOWAVE10": 0.10,
	"PREMIUM20":    0.20,
	"ESTUDIANTE15": 0.15,
	"PRIMERA25":    0.25,
}

// Lookup resolves a user-entered code, case-insensitively, to its
// discount rate. Returns false on an unknown code.
func Lookup(code string) (float64, bool) {
	rate, ok := codes[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok
}
