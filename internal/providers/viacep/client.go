package viacep

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

// ViaCEP: free JSON API, primary provider. Misses come back as a 200
// with {"erro": true}.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://viacep.com.br"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "viacep" }

func (c *Client) Mapping() cep.Mapping {
	return cep.Mapping{
		Provider: c.Name(),
		Fields: map[string]string{
			"cep":         "cep",
			"logradouro":  "logradouro",
			"bairro":      "bairro",
			"localidade":  "cidade",
			"uf":          "estado",
			"complemento": "complemento",
		},
		NotFound: func(obj map[string]any) bool {
			switch v := obj["erro"].(type) {
			case bool:
				return v
			case string:
				return v == "true"
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
	u.Path = fmt.Sprintf("/ws/%s/json/", cep.CleanCode(code))

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
		return nil, providers.Upstream(c.Name(), fmt.Errorf("viacep http %d", resp.StatusCode))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, providers.Upstream(c.Name(), errors.Wrap(err, "decode"))
	}
	return payload, nil
}
