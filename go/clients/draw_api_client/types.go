package draw_api_client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcdev12/animalitos/go/internal/models"
)

// envelope wraps every back-office response.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	SinSorteos bool            `json:"sin_sorteos"`
	Motivo     string          `json:"motivo"`
	Message    string          `json:"message"`
}

type nextDrawData struct {
	ProximoSorteo   *ProximoSorteo   `json:"proximo_sorteo"`
	UltimoResultado *UltimoResultado `json:"ultimo_resultado"`
}

type ProximoSorteo struct {
	Codigo            FlexString `json:"codigo"`
	Descripcion       string     `json:"descripcion"`
	Hora              string     `json:"hora"`
	SegundosRestantes int        `json:"segundos_restantes"`
	EsDiaSiguiente    bool       `json:"es_dia_siguiente"`
}

type UltimoResultado struct {
	CodigoAnimal FlexString `json:"codigo_animal"`
	NombreAnimal string     `json:"nombre_animal"`
	Sorteo       string     `json:"sorteo"`
	Hora         string     `json:"hora"`
	Color        string     `json:"color"`
}

type Sorteo struct {
	ID           FlexString `json:"id"`
	Sorteo       string     `json:"sorteo"`
	Hora         string     `json:"hora"`
	CodigoAnimal FlexString `json:"codigo_animal"`
	NombreAnimal string     `json:"nombre_animal"`
	Color        string     `json:"color"`
	Estado       string     `json:"estado"`
}

// FlexString decodes a JSON string or number as a string; null reads as "".
// The back office is not consistent about quoting codes and ids.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

func (p ProximoSorteo) toModel() (*models.UpcomingDraw, error) {
	at, err := models.ParseClockTime(p.Hora)
	if err != nil {
		return nil, fmt.Errorf("proximo_sorteo: %w", err)
	}
	secs := p.SegundosRestantes
	if secs < 0 {
		secs = 0
	}
	return &models.UpcomingDraw{
		Code:             string(p.Codigo),
		Description:      p.Descripcion,
		ScheduledTime:    at,
		SecondsRemaining: secs,
		IsNextDay:        p.EsDiaSiguiente,
	}, nil
}

func (u UltimoResultado) toModel() (*models.DrawResult, error) {
	at, err := models.ParseClockTime(u.Hora)
	if err != nil {
		return nil, fmt.Errorf("ultimo_resultado: %w", err)
	}
	return &models.DrawResult{
		OutcomeCode:   string(u.CodigoAnimal),
		OutcomeName:   strings.TrimSpace(u.NombreAnimal),
		ScheduleLabel: u.Sorteo,
		ScheduledTime: at,
		Color:         u.Color,
	}, nil
}

func (s Sorteo) toModel() (models.ScheduleEntry, error) {
	at, err := models.ParseClockTime(s.Hora)
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("sorteo %s: %w", s.ID, err)
	}
	return models.ScheduleEntry{
		ID:            string(s.ID),
		Label:         s.Sorteo,
		ScheduledTime: at,
		OutcomeCode:   string(s.CodigoAnimal),
		OutcomeName:   strings.TrimSpace(s.NombreAnimal),
		Color:         s.Color,
		State:         entryState(s.Estado),
	}, nil
}

// entryState maps the estado field, accepting accented and English spellings.
func entryState(estado string) models.EntryState {
	switch strings.ToUpper(strings.TrimSpace(estado)) {
	case EstadoJugado, "PLAYED":
		return models.EntryStatePlayed
	case EstadoProximo, "PRÓXIMO", "NEXT":
		return models.EntryStateNext
	default:
		return models.EntryStatePending
	}
}
