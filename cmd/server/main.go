package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/database"
	"github.com/iliyamo/bookmyseat/internal/handler"
	"github.com/iliyamo/bookmyseat/internal/middleware"
	"github.com/iliyamo/bookmyseat/internal/notify"
	"github.com/iliyamo/bookmyseat/internal/payment"
	"github.com/iliyamo/bookmyseat/internal/queue"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/router"
	"github.com/iliyamo/bookmyseat/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	theaters := repository.NewTheaterRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)

	// notifications: RabbitMQ when reachable, otherwise straight to the notifier
	mailCfg := config.LoadMailConfig()
	var notifier queue.EventHandler
	if mailCfg.APIKey != "" {
		notifier = notify.NewMailerSendNotifier(mailCfg.APIKey, mailCfg.FromName, mailCfg.FromEmail)
	} else {
		notifier = notify.NewLogNotifier(mailCfg.LogDir)
	}
	brokerCfg := config.LoadBrokerConfig()
	var sink queue.Sink
	if pub, err := queue.NewPublisher(brokerCfg.URL, brokerCfg.Queue); err != nil {
		log.Printf("rabbitmq: unavailable, notifying directly: %v", err)
		sink = queue.HandlerSink{Handler: notifier}
	} else {
		defer pub.Close()
		sink = pub
		if brokerCfg.Consumer {
			go func() {
				if err := queue.StartBookingConsumer(ctx, brokerCfg.URL, brokerCfg.Queue, notifier); err != nil {
					log.Printf("booking-consumer: stopped: %v", err)
				}
			}()
		}
	}
	events := queue.NewAsyncDispatcher(sink, 10*time.Second)

	ttl := config.LoadReservationConfig().TTL
	clock := service.SystemClock{}
	checkoutCfg := config.LoadCheckoutConfig()
	reservations := service.NewReservationService(db, seats, theaters, clock, ttl)
	checkout := service.NewCheckoutService(db, service.Repos{
		Movies:   movies,
		Theaters: theaters,
		Seats:    seats,
		Bookings: bookings,
		Users:    users,
	}, payment.NewStripeGateway(checkoutCfg.StripeSecretKey), events, checkoutCfg, clock, ttl)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterBrowse(e, handler.NewBrowseHandler(movies, theaters),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		LoginURL:  cfg.LoginURL,
		Bookings:  handler.NewBookingHandler(reservations, bookings),
		Checkout:  handler.NewCheckoutHandler(checkout, cfg.BaseURL),
		Dashboard: handler.NewDashboardHandler(bookings),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	events.Wait()
}
