// Command vetbot runs the veterinary consultation service: two Telegram
// long-poll loops (pet owners and doctors), the AI advice pipeline, and the
// admin HTTP API with the public home-visit form.
//
// Configuration comes from the environment (optionally a .env file); see
// internal/config for every knob and its default.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vetsupport/go-vet-backend/internal/ai"
	"github.com/vetsupport/go-vet-backend/internal/bot"
	"github.com/vetsupport/go-vet-backend/internal/clinic"
	"github.com/vetsupport/go-vet-backend/internal/config"
	httpapi "github.com/vetsupport/go-vet-backend/internal/http"
	"github.com/vetsupport/go-vet-backend/internal/notify"
	"github.com/vetsupport/go-vet-backend/internal/observability"
	"github.com/vetsupport/go-vet-backend/internal/repo"
	"github.com/vetsupport/go-vet-backend/internal/services"
	"github.com/vetsupport/go-vet-backend/internal/sysutil"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observability first so DB and HTTP spans land in the same trace tree.
	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			log.Fatal().Err(err).Msg("otel setup failed")
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("otel shutdown")
			}
		}()
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin failed")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("automigrate failed")
	}

	contact := clinic.Contact{
		Phone: sysutil.FirstNonEmpty(cfg.Clinic.Phone, clinic.DefaultContact.Phone),
		Hours: sysutil.FirstNonEmpty(cfg.Clinic.Hours, clinic.DefaultContact.Hours),
	}

	advisor := ai.NewClient(ai.Config{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})

	// The coordinator and the bots reference each other (the bots feed
	// updates in, the coordinator pushes messages out over the same
	// connections), so the outbound channels are bound after both bots
	// authorize.
	coord := services.NewCoordinator(db, nil, nil)
	advice := services.NewAdviceService(db, advisor, coord, contact)
	advice.AITimeout = cfg.AI.Timeout
	doctors := services.NewDoctorService(db)
	vetCalls := services.NewVetCallService(db)

	clientBot, err := bot.NewClientBot(cfg.Telegram.ClientToken, advice, coord, contact)
	if err != nil {
		log.Fatal().Err(err).Msg("client bot init failed")
	}
	doctorBot, err := bot.NewDoctorBot(cfg.Telegram.DoctorToken, doctors, coord)
	if err != nil {
		log.Fatal().Err(err).Msg("doctor bot init failed")
	}
	coord.ClientChannel = notify.NewTelegram(clientBot.API())
	coord.DoctorChannel = notify.NewTelegram(doctorBot.API())

	go clientBot.Run(ctx)
	go doctorBot.Run(ctx)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Coordinator: coord,
		Doctors:     doctors,
		VetCalls:    vetCalls,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("bye")
}
