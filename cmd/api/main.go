package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seatgrid/reservation/internal/app"
	"github.com/seatgrid/reservation/internal/bus"
	"github.com/seatgrid/reservation/internal/cache"
	"github.com/seatgrid/reservation/internal/clock"
	"github.com/seatgrid/reservation/internal/config"
	"github.com/seatgrid/reservation/internal/gateway"
	"github.com/seatgrid/reservation/internal/storage/postgres"
	"github.com/seatgrid/reservation/internal/stream"
	transporthttp "github.com/seatgrid/reservation/internal/transport/http"
	"github.com/seatgrid/reservation/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().
		Timestamp().
		Str("app", cfg.AppName).
		Logger()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	clk := clock.NewSystem()
	events := bus.New(log)

	var store cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(startupCtx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping")
		}
		defer rdb.Close()
		store = cache.NewRedis(rdb)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis availability cache")
	}
	events.Subscribe(cache.NewInvalidator(store, log))

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		writer := stream.NewWriter(brokers, cfg.KafkaTopic)
		defer writer.Close()
		events.Subscribe(stream.NewRelay(writer))
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("relaying status changes to kafka")
	}

	gwOpts := []gateway.SimulatorOption{
		gateway.WithSuccessRate(cfg.GatewaySuccessRate),
		gateway.WithDelayBounds(cfg.GatewayMinDelay, cfg.GatewayMaxDelay),
	}
	if cfg.GatewayTestMode {
		gwOpts = append(gwOpts, gateway.WithTestMode(true))
	}
	gw := gateway.NewSimulator(log, clk, gwOpts...)

	ledgerRepo := postgres.NewLedgerRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	holdSvc := app.NewHoldService(ledgerRepo, clk, events, app.WithHoldTTL(cfg.HoldTTL))
	paySvc := app.NewPaymentService(paymentRepo, clk, events, gw, log,
		app.WithReleaseOnFailure(cfg.ReleaseOnPaymentFailure))
	catalogSvc := app.NewCatalogService(catalogRepo, clk)
	availSvc := app.NewAvailabilityService(catalogRepo, store, log)
	sweeper := app.NewSweeper(ledgerRepo, clk, events, log,
		app.WithSweepInterval(cfg.SweepInterval))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/holds", transporthttp.HandleCreateHold(holdSvc))
	mux.Handle("/holds/", transporthttp.HandleCancelHold(holdSvc))
	mux.Handle("/payments", transporthttp.HandleSubmitPayment(paySvc))
	mux.Handle("/payments/", transporthttp.HandleResolvePayment(paySvc))
	mux.Handle("/events/", transporthttp.HandleAvailability(availSvc))
	mux.Handle("/admin/events", transporthttp.HandleAdminEvents(catalogSvc))
	mux.Handle("/admin/events/", transporthttp.HandleAdminUnits(catalogSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.Origins(), mux), log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server error")
	}

	events.Drain()
	log.Info().Msg("server stopped")
}
