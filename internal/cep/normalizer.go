package cep

import (
	"strings"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/models"
)

// Mapping describes how one provider's payload becomes canonical records.
// Fields maps external field names to canonical ones ("cep", "logradouro",
// "bairro", "cidade", "estado", "complemento"); a field absent from the
// payload defaults to the empty string.
type Mapping struct {
	Provider string
	Fields   map[string]string

	// StreetTypeField, when set, names an external field whose value is
	// prepended to the street ("Avenida" + "Paulista").
	StreetTypeField string

	// SplitStreet splits a compound street on the first " - " into
	// street and complement (Correios embeds block ranges that way).
	SplitStreet bool

	// NotFound reports whether the payload object is the provider's
	// explicit miss marker (ViaCEP's "erro", República Virtual's
	// "resultado": "0").
	NotFound func(obj map[string]any) bool
}

// Alternate top-level keys some providers nest their address list under,
// probed only after the "items" key, plain-list and single-object shapes.
var altItemKeys = []string{"enderecos", "dados", "resultado"}

// Normalize shapes a decoded provider payload into zero or more canonical
// records for the requested code. now is injected by the orchestrator and
// stamps meta.verified_at on every produced record.
func Normalize(m Mapping, payload any, code string, now time.Time) []*models.Address {
	items := candidateItems(m, payload)
	if len(items) == 0 {
		return []*models.Address{NotFoundRecord(code, now)}
	}

	out := make([]*models.Address, 0, len(items))
	for _, obj := range items {
		if m.NotFound != nil && m.NotFound(obj) {
			out = append(out, NotFoundRecord(code, now))
			continue
		}
		out = append(out, normalizeOne(m, obj, code, now))
	}
	return out
}

// NotFoundRecord builds the confirmed-miss marker for a code.
func NotFoundRecord(code string, now time.Time) *models.Address {
	return &models.Address{
		CEP:  CleanCode(code),
		Meta: &models.AddressMeta{VerifiedAt: now, NotFound: true},
	}
}

// CleanCode strips separators, keeping digits only.
func CleanCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeOne(m Mapping, obj map[string]any, code string, now time.Time) *models.Address {
	rec := &models.Address{
		CEP:  CleanCode(code),
		Meta: &models.AddressMeta{VerifiedAt: now},
	}

	for ext, canonical := range m.Fields {
		v := stringField(obj, ext)
		switch canonical {
		case "cep":
			if c := CleanCode(v); c != "" {
				rec.CEP = c
			}
		case "logradouro":
			rec.Street = v
		case "bairro":
			rec.District = v
		case "cidade":
			rec.City = v
		case "estado":
			rec.State = v
		case "complemento":
			rec.Complement = v
		}
	}

	if m.StreetTypeField != "" {
		if tipo := strings.TrimSpace(stringField(obj, m.StreetTypeField)); tipo != "" {
			rec.Street = strings.TrimSpace(tipo + " " + rec.Street)
		}
	}

	if m.SplitStreet && rec.Complement == "" {
		rec.Street, rec.Complement = splitStreet(rec.Street)
	}

	// Providers occasionally return structurally valid records with a
	// blank district; those are bad data and must cache as a miss.
	if strings.TrimSpace(rec.District) == "" {
		return NotFoundRecord(code, now)
	}
	return rec
}

// candidateItems extracts the address objects from a payload whose shape
// varies by provider: a named "items" key, the payload being itself a
// list, a single address object, then alternate named keys.
func candidateItems(m Mapping, payload any) []map[string]any {
	switch p := payload.(type) {
	case []any:
		return objectList(p)
	case map[string]any:
		if v, ok := p["items"]; ok {
			if items := objectList(asList(v)); len(items) > 0 {
				return items
			}
		}
		if looksLikeAddress(m, p) {
			return []map[string]any{p}
		}
		for _, k := range altItemKeys {
			if v, ok := p[k]; ok {
				if items := objectList(asList(v)); len(items) > 0 {
					return items
				}
			}
		}
	}
	return nil
}

// looksLikeAddress: the object carries at least one mapped field or the
// provider's explicit miss marker.
func looksLikeAddress(m Mapping, obj map[string]any) bool {
	if m.NotFound != nil && m.NotFound(obj) {
		return true
	}
	for ext := range m.Fields {
		if _, ok := obj[ext]; ok {
			return true
		}
	}
	return false
}

func objectList(vs []any) []map[string]any {
	var out []map[string]any
	for _, v := range vs {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	if obj, ok := v.(map[string]any); ok {
		return []any{obj}
	}
	return nil
}

func splitStreet(street string) (string, string) {
	idx := strings.Index(street, " - ")
	if idx < 0 {
		return street, ""
	}
	return strings.TrimSpace(street[:idx]), strings.TrimSpace(street[idx+3:])
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
