package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/config"
	"github.com/mcdev12/animalitos/go/internal/display"
	"github.com/mcdev12/animalitos/go/internal/display/gateway"
	"github.com/mcdev12/animalitos/go/internal/display/publisher"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func displayConfig(cfg *config.Config) (display.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return display.Config{}, err
	}
	spin := cfg.Display.Spin
	return display.Config{
		PollInterval:   cfg.Display.PollInterval,
		RequestTimeout: cfg.DrawAPI.Timeout,
		Spin: display.SpinTiming{
			InitialDelay: spin.InitialDelay,
			MaxDelay:     spin.MaxDelay,
			LateGrowth:   spin.LateGrowth,
			MidGrowth:    spin.MidGrowth,
			Settle:       spin.Settle,
		},
		Outcomes: cfg.Outcomes,
		Location: loc,
	}, nil
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	gw := gateway.DefaultConfig()
	gw.OperatorToken = cfg.Server.OperatorToken
	gw.MaxPollFailures = cfg.Display.MaxPollFailures
	return gw
}

func publisherConfig(cfg *config.Config) publisher.JetStreamConfig {
	js := publisher.DefaultJetStreamConfig()
	js.URL = cfg.NATS.URL
	if cfg.NATS.StreamName != "" {
		js.StreamName = cfg.NATS.StreamName
	}
	if cfg.NATS.SubjectPrefix != "" {
		js.SubjectPrefix = cfg.NATS.SubjectPrefix
	}
	return js
}
