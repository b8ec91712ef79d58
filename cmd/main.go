package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/adapter/postgres"
	"bakehouse/internal/adapter/rabbitmq"
	"bakehouse/internal/app/order"
	"bakehouse/internal/app/schedule"
	"bakehouse/internal/config"

	amqpAdapter "bakehouse/internal/adapter/amqp"
	httpAdapter "bakehouse/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: fulfillment-service, notification-subscriber")
	port := flag.Int("port", 3000, "HTTP port")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	prefetch := flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	lgr := logger.New(*mode)

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	switch *mode {
	case "fulfillment-service":
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})

		runFulfillmentService(db, mqConn, lgr, cfg, *port)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, mqConn, lgr, cfg, *prefetch)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runFulfillmentService(db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, cfg *config.Config, port int) {
	orderRepo := postgres.NewOrderRepository(db)
	storeRepo := postgres.NewStoreRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)

	publisher := rabbitmq.NewPublisher(mqConn)

	availabilityService := schedule.NewService(storeRepo, catalogRepo, lgr, cfg.Pickup)
	orderService := order.NewService(orderRepo, availabilityService, publisher, lgr, cfg.Notifications)

	orderHandler := httpAdapter.NewOrderHandler(orderService, lgr)
	availabilityHandler := httpAdapter.NewAvailabilityHandler(availabilityService, lgr)

	adminAuth := httpAdapter.AdminAuthMiddleware(cfg.Admin.Token, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", orderHandler.CreateOrder)
	mux.HandleFunc("/orders/", orderHandler.HandleOrders)
	mux.HandleFunc("/stores/", availabilityHandler.HandleStores)
	mux.Handle("/admin/orders/", adminAuth(http.HandlerFunc(orderHandler.HandleAdminOrders)))

	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Fulfillment Service started on port %d", port), "startup", map[string]interface{}{
		"port": port,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Fulfillment Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runNotificationSubscriber(ctx context.Context, mqConn rabbitmq.Connection, lgr logger.Logger, cfg *config.Config, prefetch int) {
	consumer := rabbitmq.NewConsumer(mqConn, prefetch)

	mailer := amqpAdapter.NewMailer(cfg.SMTP)
	notificationHandler := amqpAdapter.NewNotificationHandler(mailer, lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	go func() {
		if err := consumer.ConsumeNotifications(ctx, notificationHandler.HandleNotification); err != nil {
			lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
}
