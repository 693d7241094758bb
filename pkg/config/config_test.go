package config

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/mpapenbr/redlight-race-go/pkg/race"
)

func TestRaceSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *RaceSettings)
		wantErr bool
	}{
		{name: "defaults", modify: func(s *RaceSettings) {}},
		{name: "roster without count", modify: func(s *RaceSettings) {
			s.Competitors = 0
			s.Roster = "roster.json"
		}},
		{name: "no competitors", modify: func(s *RaceSettings) { s.Competitors = 0 }, wantErr: true},
		{name: "finish", modify: func(s *RaceSettings) { s.FinishDistance = -1 }, wantErr: true},
		{name: "fractional duration", modify: func(s *RaceSettings) { s.Duration = 1500 * time.Millisecond }, wantErr: true},
		{name: "flip", modify: func(s *RaceSettings) { s.FlipInterval = 0 }, wantErr: true},
		{name: "speed range", modify: func(s *RaceSettings) { s.MaxSpeed = 1 }, wantErr: true},
		{name: "interval range", modify: func(s *RaceSettings) { s.MinInterval = 0 }, wantErr: true},
		{name: "reaction", modify: func(s *RaceSettings) { s.Reaction = -time.Second }, wantErr: true},
		{name: "win mode", modify: func(s *RaceSettings) { s.WinMode = "fastest" }, wantErr: true},
		{name: "signal", modify: func(s *RaceSettings) { s.InitialSignal = "amber" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultRaceSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRaceSettings_Conversions(t *testing.T) {
	s := DefaultRaceSettings()
	s.WinMode = "survivor"
	s.InitialSignal = "green"
	s.Reaction = 250 * time.Millisecond
	require.NoError(t, s.Validate())

	r, err := race.New(
		[]*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)},
		s.RaceOptions()...)
	require.NoError(t, err)
	assert.Equal(t, race.WinModeSoleSurvivor, r.WinMode())
	assert.Equal(t, race.Go, r.Signal())
	assert.Equal(t, 180, r.RemainingSeconds())
	assert.InDelta(t, 600.0, r.FinishDistance(), 0)

	m := s.Model(3, 42)
	assert.Equal(t, 3, m.Competitors)
	assert.Equal(t, "sole-survivor", m.WinMode)
	assert.Equal(t, "GO", m.InitialSignal)
	assert.Equal(t, 3000, m.FlipIntervalMs)
	assert.Equal(t, 250, m.ReactionMs)
	assert.Equal(t, uint64(42), m.Seed)

	cs := s.CompetitorSettings()
	assert.Equal(t, race.DefaultCompetitorSettings, cs)
}

func TestSetupTelemetry_Stdout(t *testing.T) {
	prevMeter := otel.GetMeterProvider()
	prevTracer := otel.GetTracerProvider()
	defer func() {
		otel.SetMeterProvider(prevMeter)
		otel.SetTracerProvider(prevTracer)
	}()

	buf := &bytes.Buffer{}
	tel, err := SetupTelemetry(context.Background(),
		WithEndpoint("stdout"),
		WithWriter(buf),
		WithExportInterval(time.Hour))
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "test-span")
	span.End()
	tel.Shutdown()

	assert.Contains(t, buf.String(), "test-span")
}
