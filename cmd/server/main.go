package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/coop_market/internal/cache"
	"github.com/Skotchmaster/coop_market/internal/config"
	"github.com/Skotchmaster/coop_market/internal/db"
	"github.com/Skotchmaster/coop_market/internal/es"
	"github.com/Skotchmaster/coop_market/internal/events"
	"github.com/Skotchmaster/coop_market/internal/httpserver"
	"github.com/Skotchmaster/coop_market/internal/logging"
	loggingmw "github.com/Skotchmaster/coop_market/internal/middleware/logging"
	"github.com/Skotchmaster/coop_market/internal/payment"
	"github.com/Skotchmaster/coop_market/internal/repo"
	"github.com/Skotchmaster/coop_market/internal/search"
	"github.com/Skotchmaster/coop_market/internal/service"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.MidtransServerKey, "MIDTRANS_SERVER_KEY")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	r := &repo.GormRepo{DB: gdb}

	var publisher service.EventPublisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	} else {
		logger.Warn("kafka disabled: KAFKA_BROKERS is empty")
	}

	paymentSvc := &service.PaymentService{
		Repo:                  r,
		Events:                publisher,
		GatewayTimeout:        cfg.GatewayTimeout,
		MembershipFeeFallback: decimal.NewFromInt(cfg.MembershipFeeFallback),
		NewID:                 uuid.NewString,
	}

	gateway := payment.NewClient(payment.ClientConfig{
		ServerKey:  cfg.MidtransServerKey,
		Production: cfg.MidtransProduction,
		Timeout:    cfg.GatewayTimeout,
	})
	paymentSvc.Gateway = gateway
	paymentSvc.Methods = payment.NewRegistry(gateway, uuid.NewString)

	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		esClient, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		esCancel()
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		paymentSvc.Index = search.NewPaymentIndex(esClient, cfg.ESPaymentIndex)
	} else {
		logger.Warn("payment search disabled: ES_URL is empty")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = cache.NewClient(cfg.RedisAddr)
		paymentSvc.Cache = cache.NewStatusCache(rdb)
	} else {
		logger.Warn("payment status cache disabled: REDIS_ADDR is empty")
	}

	cartSvc := &service.CartService{Repo: r, Events: publisher}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:    &httpserver.CartHTTP{Svc: cartSvc},
		PaymentHandler: &httpserver.PaymentHTTP{Svc: paymentSvc},
		JWTSecret:      cfg.JWTAccessSecret,
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx).Err()
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.GatewayTimeout + 15*time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("server stopped")
}
