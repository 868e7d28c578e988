package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hemobank/internal/audit"
	"hemobank/internal/bank"
	bankhandler "hemobank/internal/bank/handler"
	"hemobank/internal/booking"
	bookinghandler "hemobank/internal/booking/handler"
	"hemobank/internal/inventory"
	"hemobank/internal/jwttoken"
	"hemobank/internal/platform/config"
	"hemobank/internal/platform/httpserver"
	"hemobank/internal/platform/logger"
	"hemobank/internal/platform/metrics"
	"hemobank/internal/platform/postgres"
	platformredis "hemobank/internal/platform/redis"
	"hemobank/internal/stock"
	stockhandler "hemobank/internal/stock/handler"
	httptransport "hemobank/internal/transport/http"
)

const auditTopic = "hemobank.audit"

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: postgres when a DSN is configured, in-memory otherwise. The
	// in-memory pair keeps local development and tests dependency-free.
	var (
		bankStore bank.Store
		invStore  inventory.Store
		txRunner  inventory.TxRunner
		db        *sql.DB
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		bankStore = bank.NewPostgres(db)
		invStore = inventory.NewPostgres(db)
		txRunner = inventory.NewPostgresTx(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		mem := inventory.NewInMemory()
		bankStore = bank.NewInMemory()
		invStore = mem
		txRunner = inventory.NewMemoryTx(mem)
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var recorder audit.Recorder = audit.Nop{}
	var publisher *audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = audit.NewPublisher(cfg.KafkaBrokers, auditTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		recorder = publisher
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "hemobank")
	banks := bank.NewService(bankStore, cfg.CentralBankName)
	ledger := booking.NewFileLedger(cfg.LedgerPath)
	stockCache := stock.NewCache(redisClient, cfg.StockCacheTTL, log)
	bookings := booking.NewService(banks, invStore, txRunner, ledger, stockCache, log, m, recorder)
	stocks := stock.NewService(banks, invStore, stockCache, log, m, recorder)

	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(log, m, checks,
		bookinghandler.New(bookings, tokens, log),
		stockhandler.New(stocks, tokens, log),
		bankhandler.New(banks, tokens, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "central_bank", cfg.CentralBankName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if publisher != nil {
		g.Go(func() error {
			if err := publisher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
