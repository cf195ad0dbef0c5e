package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/api/postmon_api"
	"github.com/Rampap-Brasil/postmon/internal/broker/messages"
	"github.com/Rampap-Brasil/postmon/internal/services/lookup"
	"github.com/Rampap-Brasil/postmon/internal/services/parcels"
	"github.com/Rampap-Brasil/postmon/internal/webhook"
)

type postmonAPIOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runPostmonAPI(ctx context.Context, opts postmonAPIOpts, lookupSvc *lookup.Service, parcelSvc *parcels.Service, consumer kafkaConsumer, hooks *webhook.Dispatcher) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.ParcelUpdated
			if err := json.Unmarshal(value, &m); err != nil {
				return err
			}
			p, err := parcelSvc.ApplyKafkaUpdate(ctx, m)
			if err != nil {
				return err
			}
			if m.Changed && hooks != nil {
				hooks.Dispatch(ctx, p)
			}
			return nil
		})
	}()

	srv := &http.Server{Handler: postmon_api.New(lookupSvc, parcelSvc).Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}
