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

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/command"
	"github.com/agentworkforce/planwg/internal/config"
	"github.com/agentworkforce/planwg/internal/planwg"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PLANWG_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}
	setupLogging(cfg.LogLevel)

	if err := cfg.RequireSlack(); err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	backend, err := planwg.BuildRecordBackendFromDSN(cfg.BackendDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("record backend")
	}
	store := planwg.NewStore(backend)
	defer store.Close()

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("working directory")
	}

	app := &command.App{
		Cfg:     cfg,
		Store:   store,
		Channel: channel.NewSlackService(slack.New(cfg.SlackBotToken)),
		WorkDir: workDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := command.NewRootCommand(app)
	if err := root.ExecuteContext(ctx); err != nil {
		var ambiguous *planwg.AmbiguousOwnershipError
		if errors.As(err, &ambiguous) {
			log.Error().Msg(err.Error())
			for _, c := range ambiguous.Candidates {
				log.Error().Msgf("  candidate: %s (v%d, %s, %d feedback)", c.TS, c.Version, c.Status, c.FeedbackCount)
			}
		} else {
			log.Error().Msg(err.Error())
		}
		os.Exit(1)
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)
}
