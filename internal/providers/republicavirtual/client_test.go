package republicavirtual

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/web_cep.php", r.URL.Path)
		require.Equal(t, "01310930", r.URL.Query().Get("cep"))
		require.Equal(t, "json", r.URL.Query().Get("formato"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "resultado": "1",
  "tipo_logradouro": "Avenida",
  "logradouro": "Paulista",
  "bairro": "Bela Vista",
  "cidade": "São Paulo",
  "uf": "SP"
}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	payload, err := c.Fetch(context.Background(), "01310-930")
	require.NoError(t, err)

	recs := cep.Normalize(c.Mapping(), payload, "01310-930", time.Now().UTC())
	require.Len(t, recs, 1)
	require.Equal(t, "01310930", recs[0].CEP) // requested code is kept
	require.Equal(t, "Avenida Paulista", recs[0].Street)
	require.Equal(t, "Bela Vista", recs[0].District)
	require.False(t, recs[0].NotFound())
}

func TestClient_Fetch_Miss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resultado": "0", "resultado_txt": "sucesso - cep nao encontrado"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	payload, err := c.Fetch(context.Background(), "99999999")
	require.NoError(t, err)

	recs := cep.Normalize(c.Mapping(), payload, "99999999", time.Now().UTC())
	require.Len(t, recs, 1)
	require.True(t, recs[0].NotFound())
}
