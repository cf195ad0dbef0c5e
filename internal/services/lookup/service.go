package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/Rampap-Brasil/postmon/internal/metrics"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/pkg/errors"
)

// ErrProviderUnavailable: every configured provider failed. Distinct
// from a confirmed miss, which is ordinary data (Result.NotFound);
// "no provider could answer" must never read as "the CEP does not
// exist".
var ErrProviderUnavailable = errors.New("all cep providers unavailable")

// ErrStoreUnavailable: the persistent store could not be read or
// written. Never retried here.
var ErrStoreUnavailable = errors.New("address store unavailable")

type Store interface {
	FetchAddress(ctx context.Context, code string) (*models.Address, error)
	UpsertAddress(ctx context.Context, rec *models.Address) error
	GetState(ctx context.Context, sigla string) (*models.StateInfo, error)
	GetCity(ctx context.Context, siglaUF, nomeCidade string) (*models.CityInfo, error)
}

// Fetcher is the provider fallback chain.
type Fetcher interface {
	Lookup(ctx context.Context, code string, now time.Time) ([]*models.Address, error)
}

type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Result of one lookup. Address carries no internal metadata; EstadoInfo
// and CidadeInfo are denormalized reference data, attached when present.
type Result struct {
	Address    *models.Address
	EstadoInfo *models.StateInfo
	CidadeInfo *models.CityInfo
	NotFound   bool
}

type Service struct {
	store    Store
	chain    Fetcher
	policy   cep.Policy
	cache    BytesCache
	cacheTTL time.Duration

	now func() time.Time
}

func New(store Store, chain Fetcher, policy cep.Policy, cache BytesCache, cacheTTL time.Duration) *Service {
	return &Service{
		store:    store,
		chain:    chain,
		policy:   policy,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Lookup runs the cache-then-refetch state machine for one code:
// fresh cache hit -> return; stale or absent -> provider chain ->
// persist every produced record -> re-read from the store so the caller
// observes the canonical persisted shape (legacy key mapping included).
//
// Two concurrent misses for the same code may both refetch and upsert;
// the upsert is idempotent, so they converge. Not a bug, just a small
// efficiency loss.
func (s *Service) Lookup(ctx context.Context, rawCode string) (*Result, error) {
	code := cep.CleanCode(rawCode)
	now := s.now()

	// Best-effort redis front cache; any error here is a miss.
	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(code)); err == nil && ok {
			var rec models.Address
			if json.Unmarshal(b, &rec) == nil && !rec.NotFound() && !s.policy.Stale(now, &rec) {
				metrics.LookupCacheHits.WithLabelValues("redis").Inc()
				return s.finish(ctx, &rec)
			}
		}
	}

	rec, err := s.store.FetchAddress(ctx, code)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("fetch").Inc()
		return nil, storeUnavailable(err)
	}

	if s.policy.Stale(now, rec) {
		metrics.LookupCacheMisses.Inc()
		recs, err := s.chain.Lookup(ctx, code, now)
		if err != nil {
			slog.Warn("cep providers exhausted", "cep", code, "err", err)
			return nil, errors.WithMessage(ErrProviderUnavailable, err.Error())
		}
		for _, r := range recs {
			if err := s.store.UpsertAddress(ctx, r); err != nil {
				metrics.StoreErrors.WithLabelValues("upsert").Inc()
				return nil, storeUnavailable(err)
			}
		}
		rec, err = s.store.FetchAddress(ctx, code)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("fetch").Inc()
			return nil, storeUnavailable(err)
		}
	} else if rec != nil {
		metrics.LookupCacheHits.WithLabelValues("postgres").Inc()
	}

	if rec == nil || rec.NotFound() {
		return &Result{NotFound: true}, nil
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if b, err := json.Marshal(rec); err == nil {
			_ = s.cache.Set(ctx, currentKey(code), b, s.cacheTTL)
		}
	}
	return s.finish(ctx, rec)
}

// StateInfo serves the /uf endpoint.
func (s *Service) StateInfo(ctx context.Context, sigla string) (*models.StateInfo, error) {
	info, err := s.store.GetState(ctx, strings.ToUpper(sigla))
	if err != nil {
		metrics.StoreErrors.WithLabelValues("fetch").Inc()
		return nil, storeUnavailable(err)
	}
	return info, nil
}

// CityInfo serves the /cidade endpoint.
func (s *Service) CityInfo(ctx context.Context, siglaUF, nomeCidade string) (*models.CityInfo, error) {
	info, err := s.store.GetCity(ctx, strings.ToUpper(siglaUF), nomeCidade)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("fetch").Inc()
		return nil, storeUnavailable(err)
	}
	return info, nil
}

// finish strips internal metadata and attaches reference enrichment.
// Enrichment is best effort: a reference miss or error never fails a
// lookup that already has an address.
func (s *Service) finish(ctx context.Context, rec *models.Address) (*Result, error) {
	out := *rec
	out.Meta = nil
	res := &Result{Address: &out}

	if out.State != "" {
		if info, err := s.store.GetState(ctx, strings.ToUpper(out.State)); err == nil && info != nil {
			res.EstadoInfo = info
		}
		if out.City != "" {
			if info, err := s.store.GetCity(ctx, strings.ToUpper(out.State), out.City); err == nil && info != nil {
				res.CidadeInfo = info
			}
		}
	}
	return res, nil
}

func storeUnavailable(cause error) error {
	return errors.WithMessage(ErrStoreUnavailable, cause.Error())
}

func currentKey(code string) string {
	return fmt.Sprintf("cep:%s:current", code)
}
