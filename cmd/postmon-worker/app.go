package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rampap-Brasil/postmon/config"
	"github.com/Rampap-Brasil/postmon/internal/broker/kafka"
	"github.com/Rampap-Brasil/postmon/internal/cache/rediscache"
	"github.com/Rampap-Brasil/postmon/internal/integrations/tracker"
	"github.com/Rampap-Brasil/postmon/internal/integrations/tracker/correiosect"
	"github.com/Rampap-Brasil/postmon/internal/integrations/tracker/fake"
	"github.com/Rampap-Brasil/postmon/internal/services/poller"
	"github.com/Rampap-Brasil/postmon/internal/storage/pgcep"
)

type workerFactories struct {
	newStorage       func(cfg *config.Config) (repo poller.Repository, closeFn func(), err error)
	newProducer      func(cfg *config.Config) poller.Producer
	newRateLimiter   func(cfg *config.Config) poller.RateLimiter
	newTrackerClient func(cfg *config.Config) tracker.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (poller.Repository, func(), error) {
			st, err := pgcep.New(cfg.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			return kafka.NewProducer(cfg.KafkaBrokers())
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			return rediscache.NewRateLimiter(cfg.RedisAddr())
		},
		newTrackerClient: func(cfg *config.Config) tracker.Client {
			// Local setups run against the deterministic fake; only the
			// "sro" mode talks to the real Correios endpoint.
			if cfg.Postmon.CorreiosTrackerMode == "sro" {
				return correiosect.New(cfg.Postmon.CorreiosTrackerBaseURL)
			}
			return fake.New()
		},
	}
}

func RunPostmonWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	topic := cfg.Kafka.ParcelUpdatedTopicName
	if topic == "" {
		topic = "parcel.updated"
	}

	pollInterval := time.Duration(cfg.Postmon.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	batchSize := cfg.Postmon.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.Postmon.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	lease := time.Duration(cfg.Postmon.WorkerLeaseSeconds) * time.Second
	if lease <= 0 {
		lease = 120 * time.Second
	}
	rlPerMin := int64(cfg.Postmon.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	p := poller.New(repo, f.newTrackerClient(cfg), f.newProducer(cfg), f.newRateLimiter(cfg), topic).
		WithSettings(pollInterval, batchSize, concurrency, lease, rlPerMin).
		WithPlanner(poller.PlannerConfig{
			InTransitDelay: time.Duration(cfg.Postmon.WorkerNextCheckSeconds) * time.Second,
			Backoff1:       time.Duration(cfg.Postmon.WorkerBackoff1Seconds) * time.Second,
			Backoff2:       time.Duration(cfg.Postmon.WorkerBackoff2Seconds) * time.Second,
			Backoff3:       time.Duration(cfg.Postmon.WorkerBackoff3Seconds) * time.Second,
			Backoff4:       time.Duration(cfg.Postmon.WorkerBackoff4Seconds) * time.Second,
		})

	if cfg.Postmon.WorkerHTTPAddr != "" {
		go func() {
			err := runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr: cfg.Postmon.WorkerHTTPAddr,
				poller:   p,
				cfg:      cfg,
			})
			if err != nil && err != http.ErrServerClosed {
				slog.Error("worker http server", "error", err.Error())
			}
		}()
	}

	return p.Run(ctx)
}
