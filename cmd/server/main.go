package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/chamberlab/chamber-reservation/internal/config"
	"github.com/chamberlab/chamber-reservation/internal/database"
	"github.com/chamberlab/chamber-reservation/internal/handler"
	"github.com/chamberlab/chamber-reservation/internal/notifier"
	"github.com/chamberlab/chamber-reservation/internal/repository"
	"github.com/chamberlab/chamber-reservation/internal/router"
	"github.com/chamberlab/chamber-reservation/internal/workflow"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	chambers := repository.NewChamberRepo(db)
	platforms := repository.NewPlatformRepo(db)
	reservations := repository.NewReservationRepo(db)
	notifications := repository.NewNotificationRepo(db)
	queue := repository.NewQueueRepo(db)
	announcements := repository.NewAnnouncementRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.BcryptCost)
	cancel()
	if err != nil {
		log.Fatalf("admin seed: %v", err)
	}
	if created {
		log.Printf("seeded admin account %q", cfg.AdminUsername)
	}

	mailer := notifier.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	publisher := notifier.NewAMQPPublisher()
	dispatcher := notifier.NewEventDispatcher(users, notifications, mailer, publisher)

	gateway := repository.NewGateway(db)
	engine := workflow.NewEngine(gateway, dispatcher)

	go func() {
		if err := notifier.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, cfg, router.Handlers{
		Auth:              handler.NewAuthHandler(cfg, users, tokens, dispatcher),
		Reservations:      handler.NewReservationHandler(engine, reservations),
		AdminReservations: handler.NewAdminReservationHandler(engine, reservations),
		AdminUsers:        handler.NewAdminUserHandler(users, tokens, engine, dispatcher, cfg.BcryptCost),
		Chambers:          handler.NewChamberHandler(chambers, platforms, reservations, dispatcher),
		Queue:             handler.NewQueueHandler(queue, dispatcher),
		Notifications:     handler.NewNotificationHandler(notifications, dispatcher),
		Announcements:     handler.NewAnnouncementHandler(announcements),
		Stats:             handler.NewStatsHandler(users, chambers, reservations),
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
