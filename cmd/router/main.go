package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tickrouter/config"
	"tickrouter/internal/adapter"
	"tickrouter/internal/api"
	"tickrouter/internal/feed/dispatch"
	"tickrouter/internal/feed/model"
	"tickrouter/internal/feed/pipeline"
	"tickrouter/internal/feed/routing"
	"tickrouter/internal/feed/validate"
	"tickrouter/logger"
	"tickrouter/pkg/backoff"
	"tickrouter/pkg/quote"
	"tickrouter/pkg/storage"
	"tickrouter/pkg/storage/postgres"
	"tickrouter/pkg/stream"
	kafkapub "tickrouter/pkg/transport/kafka"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// Shutdown signal propagates to all adapters and workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fatal configuration errors surface here, before anything connects.
	table, err := pipeline.BuildSymbolTable(cfg.Symbols)
	if err != nil {
		log.Fatal("invalid symbol configuration", zap.Error(err))
	}
	classOf := func(symbol string) (model.AssetClass, bool) {
		class, ok := table[symbol]
		return class, ok
	}

	health := routing.NewHealthRegistry()

	// Primary push source
	pushCfg := cfg.Sources.Push
	if pushCfg.URL == "" {
		log.Fatal("no push source configured")
	}
	if pushCfg.ID == "" {
		pushCfg.ID = "primary-stream"
	}
	policy := backoffPolicy(cfg.Routing.Backoff)
	streamClient := stream.NewClient(pushCfg.URL, pushCfg.APIKey, policy, log)
	primary := adapter.NewPushAdapter(pushCfg.ID, streamClient,
		health.Register(pushCfg.ID, model.SourcePush), classOf, log)

	// Fallback poll source (optional; CRYPTO symbols never use it)
	var fallback adapter.SourceAdapter
	pollCfg := cfg.Sources.Poll
	if pollCfg.BaseURL != "" {
		if pollCfg.ID == "" {
			pollCfg.ID = "fallback-poll"
		}
		quoteClient := quote.NewClient(pollCfg.BaseURL, pollCfg.APIKey, pollCfg.Timeout)
		fallback = adapter.NewPollAdapter(pollCfg.ID, quoteClient,
			pollCfg.Interval, pollCfg.Timeout,
			health.Register(pollCfg.ID, model.SourcePoll), classOf, log)
	}

	// External delivery transport
	var transport dispatch.Transport
	var alerts pipeline.AlertPublisher
	if cfg.Kafka.Enabled {
		pub := kafkapub.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TickTopic, cfg.Kafka.AlertTopic, log)
		defer pub.Close()
		transport = pub
		alerts = pub
	}
	dispatcher := dispatch.New(transport, log)

	// Persistence sink. Routing must not depend on its availability: a failed
	// connection downgrades to no persistence instead of aborting startup.
	var sink storage.Sink
	var db api.DBHealth
	if cfg.Postgres.Host != "" {
		client, err := postgres.InitializeAndMigrateTickRecord(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			log.Error("persistence sink unavailable, snapshots disabled", zap.Error(err))
		} else {
			defer client.Close()
			sink = client
			db = client
		}
	}

	p := pipeline.New(primary, fallback, dispatcher, health, sink, alerts, table, pipeline.Options{
		Rules:            rules(cfg.Routing),
		Staleness:        staleness(cfg.Routing),
		SnapshotInterval: cfg.Routing.SnapshotInterval,
	}, log)

	// Monitoring endpoint
	if cfg.API.Addr != "" {
		srv := api.NewServer(cfg.API.Addr, p.Engine(), health, p.Latest(), db, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("monitoring endpoint failed", zap.Error(err))
			}
		}()
	}

	if err := p.Run(ctx); err != nil {
		log.Fatal("pipeline failed", zap.Error(err))
	}
}

func backoffPolicy(cfg config.BackoffConfig) backoff.Policy {
	policy := backoff.Default()
	if cfg.Initial > 0 {
		policy.Initial = cfg.Initial
	}
	if cfg.Max > 0 {
		policy.Max = cfg.Max
	}
	if cfg.Factor > 1 {
		policy.Factor = cfg.Factor
	}
	return policy
}

func rules(cfg config.RoutingConfig) validate.Rules {
	r := validate.DefaultRules()
	if cfg.CompareWindow > 0 {
		r.CompareWindow = cfg.CompareWindow
	}
	if cfg.MaxFutureSkew > 0 {
		r.MaxFutureSkew = cfg.MaxFutureSkew
	}
	return r
}

func staleness(cfg config.RoutingConfig) map[model.AssetClass]time.Duration {
	out := make(map[model.AssetClass]time.Duration, len(cfg.Staleness))
	for name, window := range cfg.Staleness {
		class, err := model.ParseAssetClass(name)
		if err != nil {
			continue // unknown classes fall back to defaults
		}
		out[class] = window
	}
	return out
}
