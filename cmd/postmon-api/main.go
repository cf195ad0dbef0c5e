package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rampap-Brasil/postmon/config"
	"github.com/Rampap-Brasil/postmon/internal/broker/kafka"
	"github.com/Rampap-Brasil/postmon/internal/cache/rediscache"
	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/Rampap-Brasil/postmon/internal/providers"
	"github.com/Rampap-Brasil/postmon/internal/providers/correiosweb"
	"github.com/Rampap-Brasil/postmon/internal/providers/republicavirtual"
	"github.com/Rampap-Brasil/postmon/internal/providers/viacep"
	"github.com/Rampap-Brasil/postmon/internal/services/lookup"
	"github.com/Rampap-Brasil/postmon/internal/services/parcels"
	"github.com/Rampap-Brasil/postmon/internal/storage/pgcep"
	"github.com/Rampap-Brasil/postmon/internal/webhook"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse error: %v", err))
	}

	httpAddr := cfg.Postmon.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":9876"
	}
	consumerGroup := cfg.Postmon.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "postmon-api"
	}
	topic := cfg.Kafka.ParcelUpdatedTopicName
	if topic == "" {
		topic = "parcel.updated"
	}
	cacheTTL := time.Duration(cfg.Postmon.AddressCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	webhookTimeout := time.Duration(cfg.Postmon.WebhookTimeoutSeconds) * time.Second

	st := mustOpenPostgresWithRetry(cfg.ConnString(), 60*time.Second)
	defer st.Close()

	rc := rediscache.New(cfg.RedisAddr())

	policy := cep.NewPolicy(
		time.Duration(cfg.Postmon.NotFoundTTLSeconds)*time.Second,
		time.Duration(cfg.Postmon.FoundTTLSeconds)*time.Second,
	)

	lookupSvc := lookup.New(st, buildProviderChain(cfg), policy, rc, cacheTTL)
	parcelSvc := parcels.New(st, nil)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers(), topic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	hooks := webhook.New(webhookTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runPostmonAPI(ctx, postmonAPIOpts{
		httpAddr:      httpAddr,
		topic:         topic,
		consumerGroup: consumerGroup,
	}, lookupSvc, parcelSvc, consumer, hooks); err != nil && err != context.Canceled {
		panic(err)
	}
}

// buildProviderChain assembles the fallback order from config. Unknown
// names are skipped with a warning; an empty or fully invalid list falls
// back to the canonical viacep, republicavirtual, correiosweb order.
func buildProviderChain(cfg *config.Config) *providers.Chain {
	var list []providers.Provider
	for _, name := range cfg.Postmon.Providers {
		switch name {
		case "viacep":
			list = append(list, viacep.New(cfg.Postmon.ViaCEPBaseURL))
		case "republicavirtual":
			list = append(list, republicavirtual.New(cfg.Postmon.RepublicaVirtualBaseURL))
		case "correiosweb":
			list = append(list, correiosweb.New(cfg.Postmon.CorreiosWebBaseURL))
		default:
			slog.Warn("unknown cep provider in config", "name", name)
		}
	}
	if len(list) == 0 {
		list = []providers.Provider{
			viacep.New(cfg.Postmon.ViaCEPBaseURL),
			republicavirtual.New(cfg.Postmon.RepublicaVirtualBaseURL),
			correiosweb.New(cfg.Postmon.CorreiosWebBaseURL),
		}
	}

	chain := providers.NewChain(list...)
	if cfg.Postmon.ProviderTimeoutSeconds > 0 {
		chain = chain.WithTimeout(time.Duration(cfg.Postmon.ProviderTimeoutSeconds) * time.Second)
	}
	return chain
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcep.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcep.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}
