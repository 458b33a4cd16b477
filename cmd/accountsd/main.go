package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/adapters/amqpdispatch"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := accounts.LoadConfig()
	if err != nil {
		return err
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := accounts.CreateUsersSchema(ctx, db); err != nil {
		return err
	}

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	var dispatcher accounts.Dispatcher
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := amqpdispatch.New(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer amqpDispatcher.Close()
		dispatcher = amqpDispatcher
	} else {
		dispatcher = accounts.LoggerDispatcher{}
	}

	tokens := accounts.NewTokenService(cfg, nil)
	verifier := accounts.NewVerifier(repo, dispatcher)
	provider := accounts.NewUserProvider(repo.Users())
	auther := accounts.NewAuthenticator(provider, tokens)
	register := accounts.NewRegisterUserHandler(repo, verifier)

	controller := accounts.NewAccountsController(
		accounts.WithControllerRepo(repo),
		accounts.WithControllerAuther(auther),
		accounts.WithControllerTokens(tokens),
		accounts.WithControllerVerifier(verifier),
		accounts.WithControllerRegister(register),
		accounts.WithControllerLocation(cfg.GetLocation()),
	)

	app := fiber.New()
	accounts.RegisterRoutes(app, controller)

	sweeper := accounts.NewSweepUnverifiedHandler(repo, cfg)
	go func() {
		scheduler := accounts.NewClockScheduler()
		_ = scheduler.Run(ctx, accounts.Schedule{
			Hour:     cfg.GetSweepHour(),
			Minute:   cfg.GetSweepMinute(),
			Location: cfg.GetLocation(),
		}, sweeper.Job())
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return app.Shutdown()
	}
}
