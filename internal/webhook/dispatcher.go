package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/metrics"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// Dispatcher fans a parcel change out to its registered callbacks. Each
// callback receives its own registration payload back, merged with the
// parcel identity and the new history, so subscribers can route by the
// correlation fields they registered with.
type Dispatcher struct {
	httpc *http.Client
}

func New(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		httpc: &http.Client{Timeout: timeout},
	}
}

// Dispatch posts to every callback and returns how many deliveries
// succeeded. Individual failures are logged and counted, never fatal:
// one broken subscriber must not starve the others.
func (d *Dispatcher) Dispatch(ctx context.Context, p *models.Parcel) int {
	delivered := 0
	for _, cb := range p.Meta.Callbacks {
		url, body, err := buildDelivery(p, cb)
		if err != nil {
			metrics.WebhookDeliveries.WithLabelValues("skipped").Inc()
			slog.Warn("skip malformed callback", "provider", p.Provider, "code", p.Code, "err", err)
			continue
		}
		if err := d.post(ctx, url, body); err != nil {
			metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
			slog.Warn("webhook delivery failed", "provider", p.Provider, "code", p.Code, "url", url, "err", err)
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
		delivered++
	}
	return delivered
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("callback http %d", resp.StatusCode)
	}
	return nil
}

func buildDelivery(p *models.Parcel, cb json.RawMessage) (string, []byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(cb, &obj); err != nil {
		return "", nil, errors.Wrap(err, "decode callback")
	}

	var url string
	if err := json.Unmarshal(obj["callback"], &url); err != nil || url == "" {
		return "", nil, errors.New("callback url missing")
	}

	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		obj[key] = b
		return nil
	}
	if err := set("token", p.Token); err != nil {
		return "", nil, err
	}
	if err := set("servico", p.Provider); err != nil {
		return "", nil, err
	}
	if err := set("codigo", p.Code); err != nil {
		return "", nil, err
	}
	if len(p.History) > 0 {
		obj["historico"] = p.History
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return "", nil, errors.Wrap(err, "encode delivery")
	}
	return url, body, nil
}
