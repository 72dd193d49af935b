package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apihttp "github.com/sportbet/platform/internal/api/http"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/cart"
	"github.com/sportbet/platform/internal/graph"
	"github.com/sportbet/platform/internal/ledger"
	"github.com/sportbet/platform/internal/odds"
	"github.com/sportbet/platform/internal/producer"
	"github.com/sportbet/platform/internal/propagation"
	"github.com/sportbet/platform/internal/repo"
	"github.com/sportbet/platform/internal/search"
	"github.com/sportbet/platform/internal/settlement"
	"github.com/sportbet/platform/internal/shared/cache"
	"github.com/sportbet/platform/internal/shared/config"
	"github.com/sportbet/platform/internal/shared/db"
	"github.com/sportbet/platform/internal/shared/logger"
	"github.com/sportbet/platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Store primário
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: carrinho e cache de listagem
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Projeções: Elasticsearch e Neo4j
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

	publ := producer.NewKafkaPublisher(cfg.KafkaBrokers)
	defer publ.Close()

	// Repositórios do primário
	users := repo.NewUsers(pg)
	teams := repo.NewTeams(pg)
	matches := repo.NewMatches(pg)
	bets := repo.NewBets(pg)

	// Métricas
	betsPlaced := prometheus.NewCounter(prometheus.CounterOpts{Name: "api_bets_placed_total", Help: "apostas colocadas"})
	checkoutBets := prometheus.NewCounter(prometheus.CounterOpts{Name: "api_checkout_bets_total", Help: "apostas via checkout"})
	rollbackFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_rollback_failures_total", Help: "compensações que falharam"})
	settledBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_total", Help: "apostas assentadas por desfecho"}, []string{"status"})
	propFail := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "propagation_failures_total", Help: "falhas de propagação por estágio"}, []string{"stage"})
	prometheus.MustRegister(betsPlaced, checkoutBets, rollbackFail, settledBy, propFail)

	// Motores
	quoter := odds.NewEngine(matches, teams)
	validator := betting.NewValidator(matches, bets, users)

	led := ledger.New(users, bets, log)
	led.OnRollbackFailure = func() { rollbackFail.Inc() }

	qcache := cache.NewQueryCache(rdb, 60*time.Second)
	prop := propagation.NewEngine(index, graphStore, qcache,
		&repo.Primary{Teams: teams, Matches: matches, Bets: bets}, log)
	prop.OnFailure = func(stage string) { propFail.WithLabelValues(stage).Inc() }

	settler := settlement.NewEngine(bets, matches, led, log)
	settler.Publisher = publ
	settler.Propagator = prop
	settler.OnSettled = func(status string) { settledBy.WithLabelValues(status).Inc() }

	cartStore := cart.NewStore(rdb, cfg.CartTTL)

	api := apihttp.NewServer(log, apihttp.Deps{
		Users:        users,
		Teams:        teams,
		Matches:      matches,
		Bets:         bets,
		Odds:         quoter,
		Validator:    validator,
		Ledger:       led,
		Settler:      settler,
		Prop:         prop,
		Cart:         cartStore,
		Graph:        graphStore,
		Reports:      index,
		Publ:         publ,
		Lists:        qcache,
		StoreTimeout: cfg.StoreTimeout,
	})
	api.OnBetPlaced = func() { betsPlaced.Inc() }
	api.OnCheckout = func(placed int) { checkoutBets.Add(float64(placed)) }

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
