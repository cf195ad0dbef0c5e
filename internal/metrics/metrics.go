package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupCacheHits counts lookups served from cache by layer
	// ("redis", "postgres").
	LookupCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmon_cep_cache_hits_total",
			Help: "CEP lookups served from cache",
		},
		[]string{"layer"},
	)

	LookupCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postmon_cep_cache_misses_total",
			Help: "CEP lookups that required a provider refetch",
		},
	)

	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmon_provider_attempts_total",
			Help: "Outbound CEP provider calls",
		},
		[]string{"provider"},
	)

	ProviderHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmon_provider_hits_total",
			Help: "Provider calls that resolved an address",
		},
		[]string{"provider"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmon_provider_failures_total",
			Help: "Provider calls that failed, by classification",
		},
		[]string{"provider", "kind"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmon_store_errors_total",
			Help: "Persistent store failures by operation",
		},
		[]string{"operation"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmon_webhook_deliveries_total",
			Help: "Parcel callback deliveries by outcome",
		},
		[]string{"outcome"}, // "delivered", "failed", "skipped"
	)
)
