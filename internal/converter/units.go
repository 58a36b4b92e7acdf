package converter

import "strings"

// unitMap maps upper-cased source unit labels to the codes Sienge expects.
var unitMap = map[string]string{
	"M2":  "m2",
	"M3":  "m3",
	"M":   "m",
	"KG":  "kg",
	"UND": "un",
	"VB":  "vb",
	"MÊS": "mes",
	"MES": "mes",
}

// NormalizeUnit maps a raw unit label to its canonical short code. Unknown
// labels are returned trimmed and lower-cased; nil stays nil.
func NormalizeUnit(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if canonical, ok := unitMap[strings.ToUpper(trimmed)]; ok {
		return &canonical
	}
	lower := strings.ToLower(trimmed)
	return &lower
}
