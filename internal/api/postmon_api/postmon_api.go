package postmon_api

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/Rampap-Brasil/postmon/internal/services/lookup"
	"github.com/Rampap-Brasil/postmon/internal/services/parcels"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var cepPattern = regexp.MustCompile(`^[0-9]{5}-?[0-9]{3}$`)

const maxCallbackBody = 64 << 10

type LookupService interface {
	Lookup(ctx context.Context, code string) (*lookup.Result, error)
	StateInfo(ctx context.Context, sigla string) (*models.StateInfo, error)
	CityInfo(ctx context.Context, siglaUF, nomeCidade string) (*models.CityInfo, error)
}

type ParcelService interface {
	Register(ctx context.Context, provider, code string, callback json.RawMessage) (*models.Parcel, error)
	Get(ctx context.Context, provider, code string) (*models.Parcel, error)
}

type API struct {
	lookup  LookupService
	parcels ParcelService
}

func New(lookupSvc LookupService, parcelSvc ParcelService) *API {
	return &API{lookup: lookupSvc, parcels: parcelSvc}
}

// Router serves both the historical unversioned routes and their /v1
// aliases; the two are the same API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsHeaders)

	r.Get("/__health__", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	routes := func(r chi.Router) {
		r.Get("/cep/{cep}", a.getCEP)
		r.Get("/uf/{sigla}", a.getUF)
		r.Get("/cidade/{sigla}/{nome}", a.getCidade)
		r.Get("/rastreio/{provider}/{code}", a.getRastreio)
		r.Post("/rastreio/{provider}/{code}", a.postRastreio)
	}
	r.Group(routes)
	r.Route("/v1", routes)
	return r
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type cepResponse struct {
	XMLName xml.Name `json:"-" xml:"result"`
	models.Address
	EstadoInfo *models.StateInfo `json:"estado_info,omitempty" xml:"estado_info,omitempty"`
	CidadeInfo *models.CityInfo  `json:"cidade_info,omitempty" xml:"cidade_info,omitempty"`
}

func (a *API) getCEP(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "cep")
	if !cepPattern.MatchString(raw) {
		renderError(w, r, http.StatusBadRequest, "CEP inválido")
		return
	}

	res, err := a.lookup.Lookup(r.Context(), raw)
	if err != nil {
		slog.Error("cep lookup", "cep", raw, "err", err)
		renderError(w, r, http.StatusServiceUnavailable, "Serviço indisponível, tente mais tarde")
		return
	}
	if res.NotFound {
		renderError(w, r, http.StatusNotFound,
			fmt.Sprintf("CEP %s não encontrado", cep.CleanCode(raw)))
		return
	}

	w.Header().Set("Cache-Control", successCacheControl)
	render(w, r, http.StatusOK, cepResponse{
		Address:    *res.Address,
		EstadoInfo: res.EstadoInfo,
		CidadeInfo: res.CidadeInfo,
	})
}

type ufResponse struct {
	XMLName xml.Name `json:"-" xml:"result"`
	models.StateInfo
}

func (a *API) getUF(w http.ResponseWriter, r *http.Request) {
	sigla := chi.URLParam(r, "sigla")

	info, err := a.lookup.StateInfo(r.Context(), sigla)
	if err != nil {
		slog.Error("uf lookup", "sigla", sigla, "err", err)
		renderError(w, r, http.StatusServiceUnavailable, "Serviço indisponível, tente mais tarde")
		return
	}
	if info == nil {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("UF %s não encontrada", sigla))
		return
	}
	w.Header().Set("Cache-Control", successCacheControl)
	render(w, r, http.StatusOK, ufResponse{StateInfo: *info})
}

type cidadeResponse struct {
	XMLName xml.Name `json:"-" xml:"result"`
	models.CityInfo
}

func (a *API) getCidade(w http.ResponseWriter, r *http.Request) {
	sigla := chi.URLParam(r, "sigla")
	nome := chi.URLParam(r, "nome")

	info, err := a.lookup.CityInfo(r.Context(), sigla, nome)
	if err != nil {
		slog.Error("cidade lookup", "sigla", sigla, "nome", nome, "err", err)
		renderError(w, r, http.StatusServiceUnavailable, "Serviço indisponível, tente mais tarde")
		return
	}
	if info == nil {
		renderError(w, r, http.StatusNotFound,
			fmt.Sprintf("Cidade %s/%s não encontrada", sigla, nome))
		return
	}
	w.Header().Set("Cache-Control", successCacheControl)
	render(w, r, http.StatusOK, cidadeResponse{CityInfo: *info})
}

type parcelResponse struct {
	XMLName   xml.Name        `json:"-" xml:"result"`
	Token     string          `json:"token" xml:"token"`
	Servico   string          `json:"servico" xml:"servico"`
	Codigo    string          `json:"codigo" xml:"codigo"`
	Historico json.RawMessage `json:"historico,omitempty" xml:"historico,omitempty"`
	CreatedAt time.Time       `json:"created_at" xml:"created_at"`
	ChangedAt *time.Time      `json:"changed_at,omitempty" xml:"changed_at,omitempty"`
	CheckedAt *time.Time      `json:"checked_at,omitempty" xml:"checked_at,omitempty"`
}

func toParcelResponse(p *models.Parcel) parcelResponse {
	return parcelResponse{
		Token:     p.Token,
		Servico:   p.Provider,
		Codigo:    p.Code,
		Historico: p.History,
		CreatedAt: p.Meta.CreatedAt,
		ChangedAt: p.Meta.ChangedAt,
		CheckedAt: p.Meta.CheckedAt,
	}
}

func (a *API) getRastreio(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := chi.URLParam(r, "code")

	p, err := a.parcels.Get(r.Context(), provider, code)
	if errors.Is(err, parcels.ErrUnknownParcel) {
		renderError(w, r, http.StatusNotFound,
			fmt.Sprintf("Pacote %s/%s não registrado", provider, code))
		return
	}
	if err != nil {
		slog.Error("rastreio get", "provider", provider, "code", code, "err", err)
		renderError(w, r, http.StatusServiceUnavailable, "Serviço indisponível, tente mais tarde")
		return
	}
	render(w, r, http.StatusOK, toParcelResponse(p))
}

func (a *API) postRastreio(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := chi.URLParam(r, "code")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "corpo da requisição ilegível")
		return
	}

	p, err := a.parcels.Register(r.Context(), provider, code, json.RawMessage(body))
	switch {
	case errors.Is(err, parcels.ErrUnknownProvider):
		renderError(w, r, http.StatusNotFound,
			fmt.Sprintf("Serviço %s não suportado", provider))
		return
	case errors.Is(err, parcels.ErrInvalidCallback):
		renderError(w, r, http.StatusBadRequest, "callback inválido")
		return
	case err != nil:
		slog.Error("rastreio register", "provider", provider, "code", code, "err", err)
		renderError(w, r, http.StatusServiceUnavailable, "Serviço indisponível, tente mais tarde")
		return
	}
	render(w, r, http.StatusOK, toParcelResponse(p))
}
