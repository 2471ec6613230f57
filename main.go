package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"auction-marketplace/config"
	"auction-marketplace/internal/auth"
	bidding "auction-marketplace/internal/biddingService"
	"auction-marketplace/internal/invoice"
	"auction-marketplace/internal/lock"
	"auction-marketplace/internal/metrics"
	"auction-marketplace/internal/notification"
	payment "auction-marketplace/internal/paymentService"
	"auction-marketplace/internal/repository"
	"auction-marketplace/internal/server"
	"auction-marketplace/internal/tracing"
	"auction-marketplace/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const serviceName = "auction-marketplace"

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		utils.Fatal("failed to initialise tracing", map[string]any{"error": err.Error()})
	}

	repo, closeStore, err := openStore(cfg)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"driver": cfg.DBDriver, "error": err.Error()})
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sink, closeSink, err := notificationSink(cfg, repo)
	if err != nil {
		utils.Fatal("failed to connect notification broker", map[string]any{"broker": cfg.NotifyBroker, "error": err.Error()})
	}
	defer closeSink()
	dispatcher := notification.NewDispatcher(sink, repo, cfg.NotifyTimeout, notification.WithMetrics(m))

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	accounts := auth.NewAccountService(repo, tokens)
	if cfg.AdminEmail != "" {
		admin, err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			utils.Fatal("failed to seed admin account", map[string]any{"email": cfg.AdminEmail, "error": err.Error()})
		}
		utils.Info("admin account ready", map[string]any{"user_id": admin.UserID})
	}

	biddingSvc := bidding.NewBiddingService(repo, dispatcher, invoice.NewHTMLRenderer(cfg.PaymentInstructions), bidding.WithMetrics(m))
	paymentSvc := payment.NewPaymentService(repo, dispatcher)

	locker, closeLocker := sweepLocker(ctx, cfg)
	defer closeLocker()
	sweeper := bidding.NewSweeper(biddingSvc, cfg.SweepInterval, locker)

	router := server.SetupRouter(server.Dependencies{
		Bidding:  biddingSvc,
		Payments: paymentSvc,
		Accounts: accounts,
		Inbox:    notification.NewInbox(repo),
		Tokens:   tokens,
		Metrics:  m,
		Gatherer: reg,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Error("server stopped with error", map[string]any{"error": err.Error()})
	}

	// deliveries queued by the last requests still reach the store
	dispatcher.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		utils.Warn("tracing shutdown failed", map[string]any{"error": err.Error()})
	}
	utils.Info("auction server stopped", nil)
}

// openStore returns the configured repository and a function releasing it
func openStore(cfg *config.Config) (repository.AuctionDB, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		utils.Warn("using the in-memory store; data is lost on restart", nil)
		return repository.NewMemoryRepo(), func() {}, nil
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewGormRepo(db)
	if err := repo.Migrate(); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { _ = sqlDB.Close() }, nil
}

// notificationSink always persists notifications and optionally publishes them to a broker
func notificationSink(cfg *config.Config, repo repository.AuctionDB) (notification.Sink, func(), error) {
	store := notification.NewStoreSink(repo)
	switch cfg.NotifyBroker {
	case config.BrokerAMQP:
		pub, err := notification.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return notification.MultiSink{store, pub}, func() { _ = pub.Close() }, nil
	case config.BrokerKafka:
		pub := notification.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		return notification.MultiSink{store, pub}, func() { _ = pub.Close() }, nil
	default:
		return store, func() {}, nil
	}
}

// sweepLocker coordinates sweeps across replicas when redis is configured.
// An unreachable redis degrades to a local sweep rather than none.
func sweepLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		return lock.Noop{}, func() {}
	}
	client, err := lock.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		utils.Warn("redis unavailable, sweeping without a distributed lock", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
		return lock.Noop{}, func() {}
	}
	return lock.NewRedisLocker(client), func() { _ = client.Close() }
}
