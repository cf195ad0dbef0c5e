package main

import (
	"context"
	"strings"
	"testing"

	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	states []*models.StateInfo
	cities []*models.CityInfo
}

func (s *memStore) UpsertState(ctx context.Context, info *models.StateInfo) error {
	s.states = append(s.states, info)
	return nil
}

func (s *memStore) UpsertCity(ctx context.Context, info *models.CityInfo) error {
	s.cities = append(s.cities, info)
	return nil
}

func TestImportUFs(t *testing.T) {
	csv := strings.Join([]string{
		"sigla,nome,codigo_ibge,area_km2",
		"SP,São Paulo,35,248222.362",
		"RJ,Rio de Janeiro,33,43780.172",
		",,,0",
	}, "\n")

	st := &memStore{}
	n, err := importUFs(context.Background(), st, strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "SP", st.states[0].Sigla)
	require.Equal(t, "Rio de Janeiro", st.states[1].Nome)
	require.InDelta(t, 248222.362, st.states[0].AreaKM2, 0.001)
}

func TestImportCidades(t *testing.T) {
	csv := strings.Join([]string{
		"sigla_uf,nome,codigo_ibge,area_km2",
		"SP,Campinas,3509502,794.571",
		"SP,Embu das Artes,3515004,70.399",
	}, "\n")

	st := &memStore{}
	n, err := importCidades(context.Background(), st, strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "Campinas", st.cities[0].Nome)
	require.Equal(t, "3515004", st.cities[1].CodigoIBGE)
}

func TestImportCidades_QuotedFields(t *testing.T) {
	csv := strings.Join([]string{
		"sigla_uf,nome,codigo_ibge,area_km2",
		`RJ,"Armação dos Búzios",3300233,70.278`,
	}, "\n")

	st := &memStore{}
	n, err := importCidades(context.Background(), st, strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "Armação dos Búzios", st.cities[0].Nome)
}

func TestImportUFs_BadRow(t *testing.T) {
	csv := strings.Join([]string{
		"sigla,nome,codigo_ibge,area_km2",
		"SP,São Paulo,35,not-a-number",
	}, "\n")

	_, err := importUFs(context.Background(), &memStore{}, strings.NewReader(csv))
	require.Error(t, err)
}
