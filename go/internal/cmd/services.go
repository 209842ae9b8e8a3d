package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/clients/draw_api_client"
	"github.com/mcdev12/animalitos/go/internal/config"
	"github.com/mcdev12/animalitos/go/internal/display"
	"github.com/mcdev12/animalitos/go/internal/display/announcer"
	"github.com/mcdev12/animalitos/go/internal/display/gateway"
	"github.com/mcdev12/animalitos/go/internal/display/publisher"
)

type Services struct {
	Display     *display.Display
	Gateway     *gateway.Service
	Connections *gateway.ConnectionManager
	Metrics     *display.CounterMetrics
	Publisher   *publisher.JetStreamPublisher
	Announcer   *announcer.TelegramAnnouncer
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up: draw API client → display loop → notifiers (screens, JetStream, Telegram)
	dispCfg, err := displayConfig(cfg)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	metrics := display.NewCounterMetrics(clock.Now)

	client := draw_api_client.NewDrawApiClient(cfg.DrawAPI.URL, cfg.DrawAPI.Token, dispCfg.Location)
	client.SetTimeout(cfg.DrawAPI.Timeout)

	gwCfg := gatewayConfig(cfg)
	connections := gateway.NewConnectionManager(gwCfg.ConnectionConfig)
	notifiers := display.MultiNotifier{connections}

	s := &Services{Connections: connections, Metrics: metrics}

	if cfg.NATS.URL != "" {
		pub, err := publisher.NewJetStreamPublisher(ctx, publisherConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		s.Publisher = pub
		notifiers = append(notifiers, pub)
	}

	if cfg.TelegramEnabled() {
		ann, err := announcer.NewTelegramAnnouncer(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			// Announcements are optional; the display runs without them
			log.Warn().Err(err).Msg("telegram announcer disabled")
		} else {
			s.Announcer = ann
			notifiers = append(notifiers, ann)
		}
	}

	s.Display = display.New(client, notifiers, metrics, clock, dispCfg)

	var status gateway.ConnectionStatus
	if s.Publisher != nil {
		status = s.Publisher
	}
	s.Gateway = gateway.NewService(gwCfg, connections, s.Display, metrics, status)

	return s, nil
}

// Start launches every background worker. The returned channel closes once all have stopped.
func (s *Services) Start(ctx context.Context) <-chan struct{} {
	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	run(s.Gateway.Start)
	run(s.Display.Run)
	if s.Publisher != nil {
		run(s.Publisher.Run)
	}
	if s.Announcer != nil {
		run(s.Announcer.Run)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (s *Services) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}
}
