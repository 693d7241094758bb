package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/race"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	NatsURL            string // URL of the NATS server, empty disables publishing
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogFilter          string // zapfilter rules, e.g. "debug:race.* info:*"
	MigrationSourceUrl string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry, "stdout" writes to stderr
	Race               = DefaultRaceSettings()
)

// RaceSettings holds the race parameters collected from flags, env and config file
type RaceSettings struct {
	Competitors    int
	Roster         string // path to a JSON roster, overrides Competitors
	FinishDistance float64
	Duration       time.Duration
	FlipInterval   time.Duration
	MinSpeed       float64
	MaxSpeed       float64
	MinInterval    time.Duration
	MaxInterval    time.Duration
	WinMode        string
	InitialSignal  string
	Reaction       time.Duration
	Seed           uint64 // 0 picks a time based seed
	Fast           bool   // compute the race in virtual time
}

func DefaultRaceSettings() RaceSettings {
	return RaceSettings{
		Competitors:    3,
		FinishDistance: race.DefaultFinishDistance,
		Duration:       race.DefaultDuration * time.Second,
		FlipInterval:   3 * time.Second,
		MinSpeed:       race.DefaultCompetitorSettings.MinSpeed,
		MaxSpeed:       race.DefaultCompetitorSettings.MaxSpeed,
		MinInterval:    race.DefaultCompetitorSettings.MinInterval,
		MaxInterval:    race.DefaultCompetitorSettings.MaxInterval,
		WinMode:        race.WinModeTimer.String(),
		InitialSignal:  race.Stop.String(),
	}
}

//nolint:cyclop // plain checks
func (s *RaceSettings) Validate() error {
	var errs []error
	if s.Roster == "" && s.Competitors < 1 {
		errs = append(errs, fmt.Errorf("competitors must be at least 1, got %d", s.Competitors))
	}
	if s.FinishDistance <= 0 {
		errs = append(errs, fmt.Errorf("finish distance must be positive, got %v", s.FinishDistance))
	}
	if s.Duration < time.Second || s.Duration%time.Second != 0 {
		errs = append(errs, fmt.Errorf("duration must be a positive number of seconds, got %v", s.Duration))
	}
	if s.FlipInterval <= 0 {
		errs = append(errs, fmt.Errorf("flip interval must be positive, got %v", s.FlipInterval))
	}
	if s.MinSpeed <= 0 || s.MaxSpeed < s.MinSpeed {
		errs = append(errs, fmt.Errorf("invalid speed range [%v,%v)", s.MinSpeed, s.MaxSpeed))
	}
	if s.MinInterval <= 0 || s.MaxInterval < s.MinInterval {
		errs = append(errs, fmt.Errorf("invalid interval range [%v,%v)", s.MinInterval, s.MaxInterval))
	}
	if s.Reaction < 0 {
		errs = append(errs, fmt.Errorf("reaction window must not be negative, got %v", s.Reaction))
	}
	if _, err := race.ParseWinMode(s.WinMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := race.ParseSignalState(s.InitialSignal); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *RaceSettings) CompetitorSettings() race.CompetitorSettings {
	return race.CompetitorSettings{
		MinSpeed:    s.MinSpeed,
		MaxSpeed:    s.MaxSpeed,
		MinInterval: s.MinInterval,
		MaxInterval: s.MaxInterval,
	}
}

// RaceOptions converts the settings into race options. Call Validate first.
func (s *RaceSettings) RaceOptions() []race.Option {
	winMode, _ := race.ParseWinMode(s.WinMode)
	signal, _ := race.ParseSignalState(s.InitialSignal)
	return []race.Option{
		race.WithFinishDistance(s.FinishDistance),
		race.WithDuration(int(s.Duration / time.Second)),
		race.WithWinMode(winMode),
		race.WithInitialSignal(signal),
		race.WithReactionWindow(s.Reaction),
	}
}

// Model returns the settings as stored in a race result
func (s *RaceSettings) Model(competitors int, seed uint64) model.RaceSettings {
	winMode, _ := race.ParseWinMode(s.WinMode)
	signal, _ := race.ParseSignalState(s.InitialSignal)
	return model.RaceSettings{
		Competitors:    competitors,
		FinishDistance: s.FinishDistance,
		DurationSec:    int(s.Duration / time.Second),
		FlipIntervalMs: int(s.FlipInterval / time.Millisecond),
		WinMode:        winMode.String(),
		InitialSignal:  signal.String(),
		ReactionMs:     int(s.Reaction / time.Millisecond),
		Seed:           seed,
	}
}
