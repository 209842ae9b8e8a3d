package draw_api_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/animalitos/go/clients"
	"github.com/mcdev12/animalitos/go/internal/models"
)

// ErrUnsuccessful is returned when the back office answers success:false without
// flagging a no-draws day.
var ErrUnsuccessful = errors.New("draw API reported failure")

type DrawApiClient struct {
	*clients.BaseClient
	loc *time.Location
}

// NewDrawApiClient creates a client for the back office at baseURL. Dates are
// formatted in loc.
func NewDrawApiClient(baseURL, token string, loc *time.Location) *DrawApiClient {
	if loc == nil {
		loc = time.Local
	}
	client := &DrawApiClient{
		BaseClient: clients.NewBaseClient(strings.TrimRight(baseURL, "/")),
		loc:        loc,
	}
	client.SetBearerToken(token)
	return client
}

// GetNextDraw fetches the upcoming draw and the latest decided result.
func (c *DrawApiClient) GetNextDraw(ctx context.Context) (*models.NextDraw, error) {
	env, err := c.getEnvelope(ctx, NextDrawEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get next draw: %w", err)
	}
	if env.SinSorteos {
		return &models.NextDraw{NoDraws: true, Reason: env.Motivo}, nil
	}

	var data nextDrawData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal next draw: %w, raw response: %s", err, string(env.Data))
		}
	}

	nd := &models.NextDraw{}
	if data.ProximoSorteo != nil {
		if nd.Upcoming, err = data.ProximoSorteo.toModel(); err != nil {
			return nil, err
		}
	}
	// A result with an hour but no animal is a draw that closed without a winner
	if data.UltimoResultado != nil && strings.TrimSpace(data.UltimoResultado.Hora) != "" {
		if nd.Latest, err = data.UltimoResultado.toModel(); err != nil {
			return nil, err
		}
	}
	return nd, nil
}

// GetSchedule fetches every configured draw hour of date with its outcome, if any.
func (c *DrawApiClient) GetSchedule(ctx context.Context, date time.Time) (*models.DaySchedule, error) {
	day := date.In(c.loc)
	endpoint := fmt.Sprintf("%s?%s=%s", ScheduleEndpoint, DateParam, url.QueryEscape(day.Format(models.DateLayout)))
	env, err := c.getEnvelope(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	y, m, d := day.Date()
	ds := &models.DaySchedule{Date: time.Date(y, m, d, 0, 0, 0, 0, c.loc)}
	if env.SinSorteos {
		ds.NoDraws = true
		ds.Reason = env.Motivo
		return ds, nil
	}

	var sorteos []Sorteo
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &sorteos); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule: %w, raw response: %s", err, string(env.Data))
		}
	}

	ds.Entries = make([]models.ScheduleEntry, 0, len(sorteos))
	for _, s := range sorteos {
		entry, err := s.toModel()
		if err != nil {
			log.Warn().Err(err).Str("date", ds.Date.Format(models.DateLayout)).Msg("skipping malformed schedule entry")
			continue
		}
		ds.Entries = append(ds.Entries, entry)
	}
	return ds, nil
}

func (c *DrawApiClient) getEnvelope(ctx context.Context, endpoint string) (*envelope, error) {
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	if !env.Success && !env.SinSorteos {
		msg := env.Message
		if msg == "" {
			msg = env.Motivo
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
	}
	return &env, nil
}
