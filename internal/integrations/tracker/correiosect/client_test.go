package correiosect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_GetHistory_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sro-rastro/PN871429404BR", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "objetos": [
    {
      "codObjeto": "PN871429404BR",
      "eventos": [
        {"dtHrCriado":"2025-06-03T09:12:00","descricao":"Objeto entregue ao destinatário","detalhe":"","unidade":{"nome":"CDD Pinheiros"}},
        {"dtHrCriado":"2025-06-01T18:40:00","descricao":"Objeto postado","detalhe":"","unidade":{"nome":"AGF Paulista"}}
      ]
    }
  ]
}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.GetHistory(context.Background(), "ect", "PN871429404BR")
	require.NoError(t, err)
	require.True(t, res.Delivered)
	require.Len(t, res.Events, 2)
	require.Equal(t, "03/06/2025 09:12", res.Events[0].Date)
	require.Equal(t, "Objeto entregue ao destinatário", res.Events[0].Status)
	require.Equal(t, "CDD Pinheiros", res.Events[0].Location)
	require.Equal(t, "Objeto postado", res.Events[1].Status)
}

func TestClient_GetHistory_UnknownObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"objetos": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.GetHistory(context.Background(), "ect", "XX000000000BR")
	require.NoError(t, err)
	require.Empty(t, res.Events)
	require.False(t, res.Delivered)
}

func TestClient_GetHistory_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetHistory(context.Background(), "ect", "PN1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "http 502")
}

func TestIsDelivered(t *testing.T) {
	require.True(t, isDelivered("Objeto entregue ao destinatário"))
	require.True(t, isDelivered("Delivered"))
	require.False(t, isDelivered("Objeto em trânsito"))
}

func TestFormatEventDate_PassThrough(t *testing.T) {
	require.Equal(t, "junk", formatEventDate("junk"))
}
