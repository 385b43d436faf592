package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/cache"
	"github.com/kailas-cloud/docgate/internal/config"
	"github.com/kailas-cloud/docgate/internal/db"
	"github.com/kailas-cloud/docgate/internal/db/embedded"
	dbRedis "github.com/kailas-cloud/docgate/internal/db/redis"
	"github.com/kailas-cloud/docgate/internal/metrics"
	"github.com/kailas-cloud/docgate/internal/queue"
	"github.com/kailas-cloud/docgate/internal/queue/jetstream"
	"github.com/kailas-cloud/docgate/internal/queue/memory"
	"github.com/kailas-cloud/docgate/internal/ratelimit"
	commanduc "github.com/kailas-cloud/docgate/internal/usecase/command"
	healthuc "github.com/kailas-cloud/docgate/internal/usecase/health"
	indexuc "github.com/kailas-cloud/docgate/internal/usecase/index"
	searchuc "github.com/kailas-cloud/docgate/internal/usecase/search"
)

// app is the composition root shared by serve and consume.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	engine   db.Engine
	queue    queue.Queue
	registry *ratelimit.Registry
	gate     *ratelimit.Gate
	gateway  *commanduc.Gateway
	consumer *commanduc.Consumer
	search   *searchuc.Service
	health   *healthuc.Service

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	metrics.RegisterPipelineMetrics()

	engine, err := openEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	a.closers = append(a.closers, engine.Close)

	if err := engine.WaitForReady(ctx, time.Duration(cfg.Engine.ReadinessTimeout)*time.Second); err != nil {
		a.Close()
		return nil, fmt.Errorf("engine not ready: %w", err)
	}
	logger.Info("Connected to search engine", zap.String("driver", cfg.Engine.Driver))

	q, err := a.openQueue(cfg.Queue)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = q
	logger.Info("Connected to command queue", zap.String("driver", cfg.Queue.Driver))

	registry, err := ratelimit.NewRegistry(cfg.Registry.MaxLimiters, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create limiter registry: %w", err)
	}
	a.registry = registry
	a.closers = append(a.closers, registry.Clear)
	a.gate = ratelimit.NewGate(registry, logger)

	resultCache, err := cache.New(cfg.Search.CacheMaxEntries)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	a.gateway = commanduc.NewGateway(a.gate, q, logger).
		WithPolicies(a.policy("ingestion"), a.policy("deletion"))
	a.consumer = commanduc.NewConsumer(indexuc.New(engine, logger), logger)
	a.search = searchuc.New(engine, resultCache, logger).WithCacheThreshold(cfg.Search.CacheThreshold)
	a.health = healthuc.New(engine, q)
	return a, nil
}

// policy returns the configured bucket for name.
func (a *app) policy(name string) ratelimit.Policy {
	rl := a.cfg.RateLimits[name]
	return ratelimit.Policy{Name: name, PermitsPerSecond: rl.PermitsPerSecond, Burst: rl.Burst}
}

// consumesInProcess reports whether serve has to apply commands itself:
// when asked to, or when no other process can reach the queue.
func (a *app) consumesInProcess(withConsumer bool) bool {
	return withConsumer || a.cfg.InProcessQueue()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openEngine(cfg config.EngineConfig) (db.Engine, error) {
	switch cfg.Driver {
	case config.EngineBleve:
		store, err := embedded.NewStore(embedded.Config{DataDir: cfg.DataDir})
		if err != nil {
			return nil, fmt.Errorf("create bleve engine: %w", err)
		}
		return store, nil
	case config.EngineRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:         cfg.Addrs,
			Username:      cfg.Username,
			Password:      cfg.Password,
			KeyPrefix:     cfg.KeyPrefix,
			TagFields:     cfg.TagFields,
			NumericFields: cfg.NumericFields,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis engine: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown engine driver %q", cfg.Driver)
	}
}

func (a *app) openQueue(cfg config.QueueConfig) (queue.Queue, error) {
	switch cfg.Driver {
	case config.QueueMemory:
		q := memory.New(memory.Config{Buffer: cfg.Buffer, MaxDeliver: cfg.MaxDeliver}, a.logger)
		a.closers = append(a.closers, func() { _ = q.Close() })
		return q, nil
	case config.QueueEmbedded:
		srv, err := jetstream.StartEmbeddedServer(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		a.closers = append(a.closers, srv.Shutdown)
		a.logger.Info("Started embedded NATS", zap.String("url", srv.URL()))
		return a.openJetStream(cfg, srv.URL())
	case config.QueueNATS:
		return a.openJetStream(cfg, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}

func (a *app) openJetStream(cfg config.QueueConfig, url string) (queue.Queue, error) {
	q, err := jetstream.New(jetstream.Config{
		URL:           url,
		Stream:        cfg.Stream,
		SubjectPrefix: cfg.SubjectPrefix,
		Durable:       cfg.Durable,
		AckWait:       time.Duration(cfg.AckWaitSec) * time.Second,
		MaxDeliver:    cfg.MaxDeliver,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to JetStream: %w", err)
	}
	a.closers = append(a.closers, func() { _ = q.Close() })
	return q, nil
}
