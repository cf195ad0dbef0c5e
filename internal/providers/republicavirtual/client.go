package republicavirtual

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/Rampap-Brasil/postmon/internal/providers"
	"github.com/pkg/errors"
)

// República Virtual: legacy JSON API. "resultado" is "0" on a miss and
// the street type comes in a separate field ("Avenida" + "Paulista").
// It does not echo the CEP back, so the requested code is kept.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://cep.republicavirtual.com.br"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "republicavirtual" }

func (c *Client) Mapping() cep.Mapping {
	return cep.Mapping{
		Provider: c.Name(),
		Fields: map[string]string{
			"logradouro": "logradouro",
			"bairro":     "bairro",
			"cidade":     "cidade",
			"uf":         "estado",
		},
		StreetTypeField: "tipo_logradouro",
		NotFound: func(obj map[string]any) bool {
			switch v := obj["resultado"].(type) {
			case string:
				return v == "0"
			case float64:
				return v == 0
			}
			return false
		},
	}
}

func (c *Client) Fetch(ctx context.Context, code string) (any, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, providers.Unexpected(c.Name(), errors.Wrap(err, "parse base url"))
	}
	u.Path = "/web_cep.php"

	q := u.Query()
	q.Set("cep", cep.CleanCode(code))
	q.Set("formato", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, providers.Unexpected(c.Name(), errors.Wrap(err, "new request"))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, providers.Transient(c.Name(), errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, providers.Upstream(c.Name(), fmt.Errorf("republicavirtual http %d", resp.StatusCode))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, providers.Upstream(c.Name(), errors.Wrap(err, "decode"))
	}
	return payload, nil
}
