package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/graph"
	"github.com/sportbet/platform/internal/ledger"
	"github.com/sportbet/platform/internal/producer"
	"github.com/sportbet/platform/internal/propagation"
	"github.com/sportbet/platform/internal/repo"
	"github.com/sportbet/platform/internal/search"
	"github.com/sportbet/platform/internal/settlement"
	"github.com/sportbet/platform/internal/shared/cache"
	"github.com/sportbet/platform/internal/shared/config"
	"github.com/sportbet/platform/internal/shared/db"
	sharedkafka "github.com/sportbet/platform/internal/shared/kafka"
	"github.com/sportbet/platform/internal/shared/logger"
	"github.com/sportbet/platform/internal/shared/metrics"
	"github.com/sportbet/platform/pkg/contracts/events"
)

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

	// Consome match_finished; a varredura periódica cobre eventos perdidos
	reader := sharedkafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchFinished, "settlement-worker")
	defer reader.Close()

	publ := producer.NewKafkaPublisher(cfg.KafkaBrokers)
	defer publ.Close()

	users := repo.NewUsers(pg)
	teams := repo.NewTeams(pg)
	matches := repo.NewMatches(pg)
	bets := repo.NewBets(pg)

	settledBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_total", Help: "apostas assentadas por desfecho"}, []string{"status"})
	sweeps := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_sweeps_total", Help: "varreduras executadas"})
	rollbackFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_rollback_failures_total", Help: "compensações que falharam"})
	propFail := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "propagation_failures_total", Help: "falhas de propagação por estágio"}, []string{"stage"})
	prometheus.MustRegister(settledBy, sweeps, rollbackFail, propFail)

	led := ledger.New(users, bets, log)
	led.OnRollbackFailure = func() { rollbackFail.Inc() }

	qcache := cache.NewQueryCache(rdb, 60*time.Second)
	prop := propagation.NewEngine(search.NewIndex(es), graph.NewStore(neoDriver), qcache,
		&repo.Primary{Teams: teams, Matches: matches, Bets: bets}, log)
	prop.OnFailure = func(stage string) { propFail.WithLabelValues(stage).Inc() }

	settler := settlement.NewEngine(bets, matches, led, log)
	settler.Publisher = publ
	settler.Propagator = prop
	settler.OnSettled = func(status string) { settledBy.WithLabelValues(status).Inc() }

	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Varredura periódica: rede de segurança para eventos perdidos e
	// apostas de partidas cujo resultado chegou por outro caminho
	go func() {
		ticker := time.NewTicker(cfg.SettlementSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweeps.Inc()
				rep, err := settler.Run(ctx)
				if err != nil {
					log.Error("settlement sweep", zap.Error(err))
					continue
				}
				if rep.Won+rep.Lost+len(rep.Failures) > 0 {
					log.Info("settlement sweep done",
						zap.Int("won", rep.Won),
						zap.Int("lost", rep.Lost),
						zap.Int("skipped", rep.Skipped),
						zap.Int("failed", len(rep.Failures)),
					)
				}
			}
		}
	}()

	log.Info("settlement-worker started")
	for {
		_, value, err := sharedkafka.ReadNext(ctx, reader)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("kafka read", zap.Error(err))
			continue
		}

		var ev events.MatchFinished
		if err := json.Unmarshal(value, &ev); err != nil {
			log.Warn("bad match_finished payload", zap.Error(err))
			continue
		}

		rep, err := settler.SettleMatch(ctx, ev.MatchID)
		if err != nil {
			log.Error("settle match", zap.String("matchId", ev.MatchID), zap.Error(err))
			continue
		}
		log.Info("match settled",
			zap.String("matchId", ev.MatchID),
			zap.Int("won", rep.Won),
			zap.Int("lost", rep.Lost),
			zap.Int("skipped", rep.Skipped),
			zap.Int("failed", len(rep.Failures)),
		)
	}
	log.Info("settlement-worker stopped")
}
