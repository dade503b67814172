package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/config"
	"github.com/agentworkforce/planwg/internal/daemon"
	"github.com/agentworkforce/planwg/internal/planwg"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PLANWG_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}
	setupLogging(cfg.LogLevel)

	if err := cfg.RequireSocketMode(); err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	backend, err := planwg.BuildRecordBackendFromDSN(cfg.BackendDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("record backend")
	}
	store := planwg.NewStore(backend)
	defer store.Close()

	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	client := socketmode.New(api)

	d := daemon.New(cfg, store, channel.NewSlackService(api), client)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("daemon exited")
	}
	log.Info().Msg("daemon stopped")
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)
}
