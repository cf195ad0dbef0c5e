package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/integrations/tracker"
)

// Client serves deterministic histories for local development, so the
// worker loop can run without Correios access. A fifth of all codes come
// back delivered.
type Client struct{}

func New() *Client { return &Client{} }

func (c *Client) GetHistory(ctx context.Context, provider, code string) (tracker.Result, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(provider))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(code))
	v := h.Sum32()

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC).
		Add(time.Duration(v%720) * time.Hour)

	res := tracker.Result{
		Events: []tracker.Event{
			{
				Date:     base.Add(48 * time.Hour).Format("02/01/2006 15:04"),
				Location: "CEE Vila Mariana",
				Status:   "Objeto em trânsito",
				Details:  fmt.Sprintf("simulado para %s", code),
			},
			{
				Date:     base.Format("02/01/2006 15:04"),
				Location: "AGF Paulista",
				Status:   "Objeto postado",
			},
		},
	}

	if v%5 == 0 {
		res.Delivered = true
		res.Events = append([]tracker.Event{{
			Date:     base.Add(96 * time.Hour).Format("02/01/2006 15:04"),
			Location: "CDD Pinheiros",
			Status:   "Objeto entregue ao destinatário",
		}}, res.Events...)
	}
	return res, nil
}
