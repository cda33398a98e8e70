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

	"storefront/config"
	_ "storefront/docs"
	"storefront/internal/cache"
	"storefront/internal/courier"
	"storefront/internal/handlers"
	"storefront/internal/producer"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/token"
	"storefront/pkg/database"
	"storefront/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// @Title Storefront API
// @Version 1.0
// @Description Корзина, оформление и отслеживание заказов
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer rc.Close()

	var events service.EventBus
	if cfg.Kafka.Enabled {
		bus := producer.NewKafkaEventBus(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer bus.Close()
		events = bus
		log.Info("kafka event bus enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		events = producer.NewLogEventBus(log)
	}

	repos := repository.New(db)
	settings := service.NewSettingsService(repos.Settings, rc, cfg.Redis.SettingsTTL, cfg.SettingDefaults(), log)
	carts := cache.NewCartStore(rc, cfg.Redis.CartTTL)

	catalogSvc := service.NewCatalogService(repos.Products)
	promoSvc := service.NewPromotionService(repos, settings)
	cartSvc := service.NewCartService(carts, catalogSvc, settings)
	orderSvc := service.NewOrderService(service.OrderDeps{
		Repo:       repos,
		Carts:      carts,
		Settings:   settings,
		Promotions: promoSvc,
		Events:     events,
		Log:        log,
	})
	trackingSvc := service.NewTrackingService(repos.Orders)
	adminSvc := service.NewAdminService(repos.Orders)
	steadfast := courier.NewSteadfast(settings, cfg.Steadfast.Timeout, log)
	fulfillmentSvc := service.NewFulfillmentService(repos.Orders, steadfast, rc, events, cfg.Steadfast.Timeout, log)

	r := router.Router(router.Handlers{
		Orders:  handlers.NewOrderHandler(orderSvc, trackingSvc, adminSvc, log),
		Cart:    handlers.NewCartHandler(cartSvc, log),
		Catalog: handlers.NewCatalogHandler(catalogSvc, promoSvc, log),
		Courier: handlers.NewCourierHandler(fulfillmentSvc, log),
	}, token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer), log)

	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting storefront HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down storefront HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("storefront HTTP server stopped gracefully")
}
