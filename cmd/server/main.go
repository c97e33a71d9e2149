package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fusionmarkt/shop/internal/checkout"
	"github.com/fusionmarkt/shop/internal/config"
	"github.com/fusionmarkt/shop/internal/es"
	"github.com/fusionmarkt/shop/internal/events"
	"github.com/fusionmarkt/shop/internal/handlers"
	"github.com/fusionmarkt/shop/internal/logging"
	"github.com/fusionmarkt/shop/internal/mail"
	"github.com/fusionmarkt/shop/internal/payment"
	"github.com/fusionmarkt/shop/internal/service/token"
	httpserver "github.com/fusionmarkt/shop/internal/transport/http"
)

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{events.TopicUserEvents, events.TopicProductEvents, events.TopicOrderEvents}
	prod, err := events.NewProducer(brokers, topics)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	mailer, err := mail.NewSMTPMailer(
		configuration.SMTP_HOST,
		configuration.SMTP_PORT,
		configuration.SMTP_USER,
		configuration.SMTP_PASSWORD,
		configuration.MAIL_FROM,
		configuration.ADMIN_EMAIL,
	)
	if err != nil {
		log.Fatal(err)
	}

	gateway := payment.NewClient(
		configuration.PAYMENT_API_URL,
		configuration.PAYMENT_API_KEY,
		configuration.PAYMENT_SECRET_KEY,
	)

	checkoutSvc := &checkout.Service{
		DB:       db,
		Gateway:  gateway,
		Mailer:   mailer,
		Producer: prod,
		SiteURL:  configuration.SITE_URL,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:              db,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "product"},
		CheckoutHandler: &handlers.CheckoutHandler{Checkout: checkoutSvc},
		PaymentHandler: &handlers.PaymentHandler{
			DB:             db,
			Checkout:       checkoutSvc,
			Gateway:        gateway,
			Producer:       prod,
			SiteURL:        configuration.SITE_URL,
			CallbackSecret: configuration.PAYMENT_CALLBACK_SECRET,
		},
		OrderHandler: &handlers.OrderHandler{DB: db},
		TokenService: &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
