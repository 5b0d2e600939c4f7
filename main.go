package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopora/checkout/internal/application/checkout"
	"github.com/shopora/checkout/internal/application/notify"
	"github.com/shopora/checkout/internal/domain/cart"
	"github.com/shopora/checkout/internal/domain/coupon"
	"github.com/shopora/checkout/internal/domain/order"
	domoutbox "github.com/shopora/checkout/internal/domain/outbox"
	"github.com/shopora/checkout/internal/domain/payment"
	"github.com/shopora/checkout/internal/domain/product"
	"github.com/shopora/checkout/internal/infrastructure/auth"
	"github.com/shopora/checkout/internal/infrastructure/id"
	kafkapub "github.com/shopora/checkout/internal/infrastructure/kafka"
	"github.com/shopora/checkout/internal/infrastructure/memory"
	"github.com/shopora/checkout/internal/infrastructure/outbox"
	"github.com/shopora/checkout/internal/infrastructure/postgres"
	redisstore "github.com/shopora/checkout/internal/infrastructure/redis"
	stripegw "github.com/shopora/checkout/internal/infrastructure/stripe"
	httptransport "github.com/shopora/checkout/internal/presentation/http"
	"github.com/shopora/checkout/internal/pkg/logging"
	"github.com/shopora/checkout/internal/pkg/metrics"
)

type config struct {
	ServiceName  string
	Env          string
	Port         string
	DatabaseURL  string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	StripeSecret string
	StripeHook   string
	SuccessURL   string
	CancelURL    string
	Currency     string
}

func readConfig() config {
	_ = godotenv.Load()

	cfg := config{
		ServiceName:  getenvDefault("SERVICE_NAME", "shopora-checkout"),
		Env:          getenvDefault("ENV", "dev"),
		Port:         getenvDefault("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaTopic:   getenvDefault("KAFKA_TOPIC", "order-events"),
		StripeSecret: os.Getenv("STRIPE_SECRET"),
		StripeHook:   os.Getenv("STRIPE_HOOK_SECRET"),
		SuccessURL:   getenvDefault("SUCCESS_URL", "http://localhost:3000/payment/success"),
		CancelURL:    getenvDefault("CANCEL_URL", "http://localhost:3000/payment/cancel"),
		Currency:     getenvDefault("CURRENCY", "egp"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func main() {
	cfg := readConfig()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	met := metrics.New()
	met.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orders  order.Repository
		stock   product.Ledger
		coupons coupon.Ledger
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("db_ping_failed", zap.Error(err))
		}
		orders = postgres.NewOrderRepository(pool)
		stock = postgres.NewInventoryLedger(pool)
		coupons = postgres.NewCouponLedger(pool)
		logger.Info("storage_backend", zap.String("backend", "postgres"))
	} else {
		orders = memory.NewOrderRepository()
		stock = memory.NewInventoryLedger()
		coupons = memory.NewCouponLedger()
		logger.Info("storage_backend", zap.String("backend", "memory"))
	}

	var carts cart.Store
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis_ping_failed", zap.Error(err))
		}
		carts = redisstore.NewCartStore(client)
		logger.Info("cart_backend", zap.String("backend", "redis"))
	} else {
		carts = memory.NewCartStore()
		logger.Info("cart_backend", zap.String("backend", "memory"))
	}

	var gateway payment.Gateway
	if cfg.StripeSecret != "" {
		gateway = stripegw.NewGateway(stripegw.Config{
			SecretKey:     cfg.StripeSecret,
			WebhookSecret: cfg.StripeHook,
			SuccessURL:    cfg.SuccessURL,
			CancelURL:     cfg.CancelURL,
		})
		logger.Info("payment_backend", zap.String("backend", "stripe"))
	} else {
		gateway = memory.NewPaymentGateway(cfg.StripeHook)
		logger.Warn("payment_backend_simulated")
	}

	bus := outbox.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	var publisher domoutbox.Publisher = bus
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkapub.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = kp.Close() }()
		publisher = fanoutPublisher{bus, kp}
		logger.Info("event_backend", zap.String("backend", "kafka"), zap.String("topic", cfg.KafkaTopic))
	}

	notify.New(logger).Start(bus)

	svc := checkout.NewService(checkout.Config{
		Orders:    orders,
		Coupons:   coupons,
		Stock:     stock,
		Carts:     carts,
		Gateway:   gateway,
		Publisher: publisher,
		IDs:       id.NewUUIDGenerator(),
		Codes:     id.NewCodeGenerator(),
		Caps:      auth.NewRoleCapability(),
		Currency:  cfg.Currency,
		Metrics:   met,
	})

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), httptransport.Observability(logger, met))
	httptransport.NewHandler(svc).Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

// fanoutPublisher delivers each event to every configured publisher and
// returns the first error.
type fanoutPublisher []domoutbox.Publisher

func (f fanoutPublisher) Publish(ctx context.Context, e domoutbox.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
