package correiosect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/integrations/tracker"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://proxyapp.correios.com.br"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sroResp struct {
	Objetos []struct {
		CodObjeto string `json:"codObjeto"`
		Eventos   []struct {
			DtHrCriado string `json:"dtHrCriado"`
			Descricao  string `json:"descricao"`
			Detalhe    string `json:"detalhe"`
			Unidade    struct {
				Nome string `json:"nome"`
			} `json:"unidade"`
		} `json:"eventos"`
	} `json:"objetos"`
}

func (c *Client) GetHistory(ctx context.Context, provider, code string) (tracker.Result, error) {
	_ = provider // this client only speaks to Correios

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return tracker.Result{}, errors.Wrap(err, "parse base url")
	}
	u.Path = fmt.Sprintf("/v1/sro-rastro/%s", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return tracker.Result{}, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return tracker.Result{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return tracker.Result{}, fmt.Errorf("correios sro http %d", resp.StatusCode)
	}

	var r sroResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return tracker.Result{}, errors.Wrap(err, "decode")
	}
	if len(r.Objetos) == 0 {
		return tracker.Result{}, nil
	}

	var out tracker.Result
	for _, e := range r.Objetos[0].Eventos {
		out.Events = append(out.Events, tracker.Event{
			Date:     formatEventDate(e.DtHrCriado),
			Location: e.Unidade.Nome,
			Status:   e.Descricao,
			Details:  e.Detalhe,
		})
	}

	// Correios lists the latest event first.
	if len(out.Events) > 0 && isDelivered(out.Events[0].Status) {
		out.Delivered = true
	}
	return out, nil
}

// formatEventDate turns the SRO timestamp ("2025-06-01T12:34:56") into the
// "01/06/2025 12:34" form the history has always carried. Unparseable
// input passes through untouched.
func formatEventDate(raw string) string {
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.Format("02/01/2006 15:04")
	}
	return raw
}

func isDelivered(status string) bool {
	low := strings.ToLower(status)
	return strings.Contains(low, "entregue") || strings.Contains(low, "delivered")
}
