package correiosweb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/Rampap-Brasil/postmon/internal/providers"
	"github.com/pkg/errors"
)

// Correios busca-CEP web page, scraped as a last resort when the JSON
// providers are down. The result table carries one row per address with
// street, district, "city/UF" and CEP cells; compound streets embed the
// complement after " - ".
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://www2.correios.com.br"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "correiosweb" }

func (c *Client) Mapping() cep.Mapping {
	return cep.Mapping{
		Provider: c.Name(),
		Fields: map[string]string{
			"cep":        "cep",
			"logradouro": "logradouro",
			"bairro":     "bairro",
			"cidade":     "cidade",
			"estado":     "estado",
		},
		SplitStreet: true,
	}
}

// Fetch posts the busca-CEP form and flattens the result table into a
// list of plain objects for the normalizer.
func (c *Client) Fetch(ctx context.Context, code string) (any, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, providers.Unexpected(c.Name(), errors.Wrap(err, "parse base url"))
	}
	u.Path = "/sistemas/buscacep/resultadoBuscaCepEndereco.cfm"

	form := url.Values{}
	form.Set("relaxation", cep.CleanCode(code))
	form.Set("tipoCEP", "ALL")
	form.Set("semelhante", "N")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, providers.Unexpected(c.Name(), errors.Wrap(err, "new request"))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, providers.Transient(c.Name(), errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, providers.Upstream(c.Name(), fmt.Errorf("correios http %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, providers.Upstream(c.Name(), errors.Wrap(err, "parse html"))
	}
	return parseResultTable(doc), nil
}

func parseResultTable(doc *goquery.Document) []any {
	var items []any
	doc.Find("table.tmptabela tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return // header row
		}
		city, uf := splitCityUF(cellText(cells.Eq(2)))
		items = append(items, map[string]any{
			"logradouro": cellText(cells.Eq(0)),
			"bairro":     cellText(cells.Eq(1)),
			"cidade":     city,
			"estado":     uf,
			"cep":        cellText(cells.Eq(3)),
		})
	})
	return items
}

// splitCityUF splits "São Paulo/SP" into city and state.
func splitCityUF(s string) (string, string) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return s, ""
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:])
}

func cellText(sel *goquery.Selection) string {
	// The page pads cells with &nbsp;.
	return strings.TrimSpace(strings.ReplaceAll(sel.Text(), "\u00a0", " "))
}
