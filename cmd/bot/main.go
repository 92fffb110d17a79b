package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/cache"
	"github.com/mortza214/dating-bot-sub000/internal/config"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/logger"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/contact"
	"github.com/mortza214/dating-bot-sub000/internal/service/match"
	"github.com/mortza214/dating-bot-sub000/internal/service/payment"
	"github.com/mortza214/dating-bot-sub000/internal/service/profile"
	"github.com/mortza214/dating-bot-sub000/internal/service/referral"
	"github.com/mortza214/dating-bot-sub000/internal/service/wallet"
	"github.com/mortza214/dating-bot-sub000/internal/telegram"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)

	if err := db.SeedDefaultFields(database); err != nil {
		log.Error("failed to seed profile fields", "err", err)
		return
	}
	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	wallets := wallet.NewService(appCtx)
	referrals := referral.NewService(appCtx, wallets)
	matcher := match.NewService(appCtx)
	contacts := contact.NewService(appCtx, wallets, referrals)
	profiles := profile.NewService(appCtx)
	payments := payment.NewService(appCtx, wallets, referrals)

	bot, err := telegram.NewBot(appCtx)
	if err != nil {
		log.Error("failed to connect to telegram", "err", err)
		return
	}

	router := telegram.NewRouter(bot, appCtx, matcher, contacts, wallets, referrals, profiles, payments)
	poller := telegram.NewPoller(bot, router, repository.NewBotStateRepository(database))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting bot", "username", bot.Username())
	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("poller stopped", "err", err)
	}
	log.Info("shutdown complete")
}
