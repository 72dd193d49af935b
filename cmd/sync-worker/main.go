package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/graph"
	"github.com/sportbet/platform/internal/propagation"
	"github.com/sportbet/platform/internal/repo"
	"github.com/sportbet/platform/internal/search"
	"github.com/sportbet/platform/internal/shared/cache"
	"github.com/sportbet/platform/internal/shared/config"
	"github.com/sportbet/platform/internal/shared/db"
	"github.com/sportbet/platform/internal/shared/logger"
	"github.com/sportbet/platform/internal/shared/metrics"
)

// sync-worker reconcilia as projeções (Elasticsearch e Neo4j) com o store
// primário em intervalo fixo. As projeções são reconstruíveis: qualquer
// escrita de propagação perdida é corrigida na próxima passada.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	es, err := search.Connect(cfg.ElasticAddr)
	if err != nil {
		log.Fatal("elastic connect", zap.Error(err))
	}
	neoDriver, err := graph.Connect(context.Background(), cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		log.Fatal("neo4j connect", zap.Error(err))
	}
	defer neoDriver.Close(context.Background())

	index := search.NewIndex(es)
	graphStore := graph.NewStore(neoDriver)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := index.EnsureIndexes(ctx); err != nil {
			log.Warn("ensure search indexes", zap.Error(err))
		}
		if err := graphStore.EnsureConstraints(ctx); err != nil {
			log.Warn("ensure graph constraints", zap.Error(err))
		}
	}

	teams := repo.NewTeams(pg)
	matches := repo.NewMatches(pg)
	bets := repo.NewBets(pg)

	syncRuns := prometheus.NewCounter(prometheus.CounterOpts{Name: "sync_runs_total", Help: "reconciliações executadas"})
	syncErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "sync_errors_total", Help: "reconciliações com erro"})
	propFail := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "propagation_failures_total", Help: "falhas de propagação por estágio"}, []string{"stage"})
	prometheus.MustRegister(syncRuns, syncErrors, propFail)

	qcache := cache.NewQueryCache(rdb, 60*time.Second)
	prop := propagation.NewEngine(index, graphStore, qcache,
		&repo.Primary{Teams: teams, Matches: matches, Bets: bets}, log)
	prop.OnFailure = func(stage string) { propFail.WithLabelValues(stage).Inc() }

	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOnce := func() {
		syncRuns.Inc()
		start := time.Now()
		if err := prop.SyncAll(ctx); err != nil {
			syncErrors.Inc()
			log.Error("sync all", zap.Error(err))
			return
		}
		log.Info("projections reconciled", zap.Duration("took", time.Since(start)))
	}

	log.Info("sync-worker started", zap.Duration("interval", cfg.SyncInterval))
	runOnce()

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("sync-worker stopped")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
