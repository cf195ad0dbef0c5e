package slug

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	require.Equal(t, "sao_paulo", Make("São Paulo"))
	require.Equal(t, "brasilia", Make("Brasília"))
	require.Equal(t, "embu_das_artes", Make("  Embu das   Artes "))
	require.Equal(t, "mogi_mirim", Make("Mogi Mirim"))
}

func TestCityKey(t *testing.T) {
	require.Equal(t, "sp_sao_paulo", CityKey("SP", "São Paulo"))
	require.Equal(t, "go_goiania", CityKey("GO", "Goiânia"))
}
