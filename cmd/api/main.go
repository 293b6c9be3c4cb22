package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopcore/go-cart-checkout/internal/cart"
	"github.com/shopcore/go-cart-checkout/internal/checkout"
	"github.com/shopcore/go-cart-checkout/internal/config"
	"github.com/shopcore/go-cart-checkout/internal/httpx"
	kafkax "github.com/shopcore/go-cart-checkout/internal/kafka"
	"github.com/shopcore/go-cart-checkout/internal/metrics"
	"github.com/shopcore/go-cart-checkout/internal/notify"
	"github.com/shopcore/go-cart-checkout/internal/postgres"
	"github.com/shopcore/go-cart-checkout/internal/redisx"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for order confirmations
	prod := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderConfirmed, 1024)
	prod.Start()

	// Services
	st := postgres.NewStore(db)
	cartCache := redisx.NewCartCache(rdb)
	cartSvc := cart.NewService(st, cartCache)
	notifier := &notify.KafkaNotifier{Producer: prod, Service: cfg.ServiceName}
	checkoutSvc := checkout.NewService(st, notifier, cartCache)

	router := httpx.NewRouter()
	h := &httpx.ShopHandler{
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Redis:    rdb,
		Metrics:  metrics.New("api", prometheus.DefaultRegisterer),
	}
	h.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
}
