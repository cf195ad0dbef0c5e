package cep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testMapping() Mapping {
	return Mapping{
		Provider: "test",
		Fields: map[string]string{
			"cep":         "cep",
			"logradouro":  "logradouro",
			"bairro":      "bairro",
			"localidade":  "cidade",
			"uf":          "estado",
			"complemento": "complemento",
		},
		NotFound: func(obj map[string]any) bool {
			v, _ := obj["erro"].(bool)
			return v
		},
	}
}

func TestNormalize_SingleObject(t *testing.T) {
	now := time.Now().UTC()
	payload := map[string]any{
		"cep":        "01310-930",
		"logradouro": "Avenida Paulista",
		"bairro":     "Bela Vista",
		"localidade": "São Paulo",
		"uf":         "SP",
	}

	recs := Normalize(testMapping(), payload, "01310930", now)
	require.Len(t, recs, 1)
	r := recs[0]
	require.Equal(t, "01310930", r.CEP)
	require.Equal(t, "Avenida Paulista", r.Street)
	require.Equal(t, "Bela Vista", r.District)
	require.Equal(t, "São Paulo", r.City)
	require.Equal(t, "SP", r.State)
	require.Empty(t, r.Complement)
	require.False(t, r.NotFound())
	require.Equal(t, now, r.Meta.VerifiedAt)
}

func TestNormalize_ListAndItemsKey(t *testing.T) {
	now := time.Now().UTC()
	obj := map[string]any{
		"logradouro": "Rua A",
		"bairro":     "Centro",
		"localidade": "Campinas",
		"uf":         "SP",
	}

	for _, payload := range []any{
		[]any{obj},
		map[string]any{"items": []any{obj}},
		map[string]any{"enderecos": []any{obj}},
	} {
		recs := Normalize(testMapping(), payload, "13010000", now)
		require.Len(t, recs, 1)
		require.Equal(t, "Rua A", recs[0].Street)
		require.False(t, recs[0].NotFound())
	}
}

func TestNormalize_NoCandidates(t *testing.T) {
	now := time.Now().UTC()
	recs := Normalize(testMapping(), map[string]any{"unrelated": 1}, "99999999", now)
	require.Len(t, recs, 1)
	require.True(t, recs[0].NotFound())
	require.Equal(t, "99999999", recs[0].CEP)
}

func TestNormalize_ProviderErrorFlag(t *testing.T) {
	now := time.Now().UTC()
	recs := Normalize(testMapping(), map[string]any{"erro": true}, "00000000", now)
	require.Len(t, recs, 1)
	require.True(t, recs[0].NotFound())
}

func TestNormalize_BlankDistrictIsNotFound(t *testing.T) {
	now := time.Now().UTC()
	for _, bairro := range []any{"", "  ", nil} {
		payload := map[string]any{
			"logradouro": "Avenida Paulista",
			"localidade": "São Paulo",
			"uf":         "SP",
		}
		if bairro != nil {
			payload["bairro"] = bairro
		}
		recs := Normalize(testMapping(), payload, "01310930", now)
		require.Len(t, recs, 1)
		require.True(t, recs[0].NotFound(), "bairro=%q must coerce to not-found", bairro)
	}
}

func TestNormalize_SplitStreet(t *testing.T) {
	m := testMapping()
	m.SplitStreet = true

	recs := Normalize(m, map[string]any{
		"logradouro": "Avenida Paulista - lado ímpar",
		"bairro":     "Bela Vista",
		"localidade": "São Paulo",
		"uf":         "SP",
	}, "01310930", time.Now().UTC())
	require.Len(t, recs, 1)
	require.Equal(t, "Avenida Paulista", recs[0].Street)
	require.Equal(t, "lado ímpar", recs[0].Complement)
}

func TestNormalize_StreetTypePrefix(t *testing.T) {
	m := Mapping{
		Provider: "rv",
		Fields: map[string]string{
			"logradouro": "logradouro",
			"bairro":     "bairro",
			"cidade":     "cidade",
			"uf":         "estado",
		},
		StreetTypeField: "tipo_logradouro",
	}

	recs := Normalize(m, map[string]any{
		"tipo_logradouro": "Avenida",
		"logradouro":      "Paulista",
		"bairro":          "Bela Vista",
		"cidade":          "São Paulo",
		"uf":              "SP",
	}, "01310930", time.Now().UTC())
	require.Len(t, recs, 1)
	require.Equal(t, "Avenida Paulista", recs[0].Street)
}

func TestCleanCode(t *testing.T) {
	require.Equal(t, "01310930", CleanCode("01310-930"))
	require.Equal(t, "01310930", CleanCode("01.310-930"))
	require.Equal(t, "01310930", CleanCode("01310930"))
}
