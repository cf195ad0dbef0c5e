// Package slug builds comparison-safe keys for city lookups: lower-case,
// diacritics stripped, spaces collapsed to underscores.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Make normalizes a single name: "São Paulo" -> "sao_paulo".
func Make(name string) string {
	s, _, err := transform.String(stripAccents, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

// CityKey is the composite key of the cidades table: "sp_sao_paulo".
func CityKey(siglaUF, nomeCidade string) string {
	return Make(siglaUF) + "_" + Make(nomeCidade)
}
