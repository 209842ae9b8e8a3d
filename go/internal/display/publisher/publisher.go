package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/internal/display/events"
)

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64         // Max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration // Window for msg-id dedupe
	QueueSize       int
	PublishTimeout  time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "DRAW_DISPLAY_EVENTS",
		SubjectPrefix:   "display.events",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
		QueueSize:       256,
		PublishTimeout:  5 * time.Second,
		MaxAttempts:     3,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// msgPublisher is the slice of jetstream.JetStream the publisher needs.
type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher republishes display lifecycle events. Notify only enqueues; Run
// does the network work off the display loop.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     msgPublisher
	config JetStreamConfig
	queue  chan events.Event
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("draw-display"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	p := newPublisher(js, cfg)
	p.nc = nc
	return p, nil
}

func newPublisher(js msgPublisher, cfg JetStreamConfig) *JetStreamPublisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &JetStreamPublisher{
		js:     js,
		config: cfg,
		queue:  make(chan events.Event, cfg.QueueSize),
	}
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig) error {
	sc := jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Draw display reveal lifecycle events",
		Subjects:    []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxMsgs:     cfg.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		if _, err = js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().
			Str("stream", cfg.StreamName).
			Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().
			Str("stream", cfg.StreamName).
			Msg("updated JetStream stream")
	}
	return nil
}

// Notify enqueues lifecycle events. View updates are screen traffic and are not republished.
func (p *JetStreamPublisher) Notify(ev events.Event) {
	if ev.Type == events.EventTypeViewUpdated {
		return
	}
	select {
	case p.queue <- ev:
	default:
		log.Warn().Str("event_type", string(ev.Type)).Str("event_id", ev.ID).Msg("publish queue full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled.
func (p *JetStreamPublisher) Run(ctx context.Context) {
	log.Info().Str("stream", p.config.StreamName).Msg("event publisher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(p.queue)).Msg("event publisher stopping")
			return
		case ev := <-p.queue:
			if err := p.publishWithRetry(ctx, ev); err != nil {
				log.Error().Err(err).Str("event_id", ev.ID).Str("event_type", string(ev.Type)).Msg("failed to publish event")
			}
		}
	}
}

func (p *JetStreamPublisher) publishWithRetry(ctx context.Context, ev events.Event) error {
	var err error
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		if err = p.Publish(ctx, ev); err == nil {
			return nil
		}
		if attempt == p.config.MaxAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("event_id", ev.ID).Msg("publish failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.config.RetryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

// Publish sends one event. The event id doubles as the JetStream msg id, so retries
// inside the duplicate window are stored once.
func (p *JetStreamPublisher) Publish(ctx context.Context, ev events.Event) error {
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, ev.Type)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if p.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.PublishTimeout)
		defer cancel()
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(ev.Type)},
			"Event-ID":   []string{ev.ID},
		},
	},
		jetstream.WithMsgID(ev.ID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", ev.ID).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("published to JetStream")

	return nil
}

// IsConnected reports the NATS connection state.
func (p *JetStreamPublisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
