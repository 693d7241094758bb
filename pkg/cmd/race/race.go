package race

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/redlight-race-go/pkg/config"
	"github.com/mpapenbr/redlight-race-go/pkg/db/migrate"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/publish/console"
	natsPublish "github.com/mpapenbr/redlight-race-go/pkg/publish/nats"
	"github.com/mpapenbr/redlight-race-go/pkg/race"
	"github.com/mpapenbr/redlight-race-go/pkg/repository/result"
	"github.com/mpapenbr/redlight-race-go/pkg/roster"
	"github.com/mpapenbr/redlight-race-go/pkg/scheduler"
	"github.com/mpapenbr/redlight-race-go/pkg/session"
	"github.com/mpapenbr/redlight-race-go/pkg/utils"
)

var (
	countdownEvery int
	quiet          bool
	output         string
	natsBucket     string
	migrateDB      bool
)

func NewRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "runs a red light / green light race",
		Long: `Runs a single race. Competitors move while the light is green and are
eliminated when they are caught moving as it turns red.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRace(cmd.Context(), cmd.OutOrStdout())
		},
	}
	s := &config.Race
	cmd.Flags().IntVarP(&s.Competitors, "competitors", "n", s.Competitors,
		"number of generated competitors")
	cmd.Flags().StringVar(&s.Roster, "roster", s.Roster,
		"JSON file with the competitors (overrides --competitors)")
	cmd.Flags().Float64Var(&s.FinishDistance, "finish-distance", s.FinishDistance,
		"distance a competitor has to cover")
	cmd.Flags().DurationVar(&s.Duration, "duration", s.Duration,
		"race duration (whole seconds)")
	cmd.Flags().DurationVar(&s.FlipInterval, "flip-interval", s.FlipInterval,
		"time between signal changes")
	cmd.Flags().Float64Var(&s.MinSpeed, "min-speed", s.MinSpeed,
		"lower bound for generated speeds")
	cmd.Flags().Float64Var(&s.MaxSpeed, "max-speed", s.MaxSpeed,
		"upper bound for generated speeds")
	cmd.Flags().DurationVar(&s.MinInterval, "min-interval", s.MinInterval,
		"lower bound for generated step intervals")
	cmd.Flags().DurationVar(&s.MaxInterval, "max-interval", s.MaxInterval,
		"upper bound for generated step intervals")
	cmd.Flags().StringVar(&s.WinMode, "win-mode", s.WinMode,
		"end condition (timer, sole-survivor)")
	cmd.Flags().StringVar(&s.InitialSignal, "initial-signal", s.InitialSignal,
		"signal at race start (STOP, GO)")
	cmd.Flags().DurationVar(&s.Reaction, "reaction", s.Reaction,
		"only competitors that moved within this window are caught on red (0 = everyone)")
	cmd.Flags().Uint64Var(&s.Seed, "seed", s.Seed,
		"seed for the random source (0 = time based)")
	cmd.Flags().BoolVar(&s.Fast, "fast", s.Fast,
		"compute the race in virtual time instead of wall clock time")

	cmd.Flags().IntVar(&countdownEvery, "countdown-every", 10,
		"print the countdown every n seconds (0 disables)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false,
		"do not print live race events")
	cmd.Flags().StringVarP(&output, "output", "o", "text",
		"format of the final result (text, json)")
	cmd.Flags().StringVar(&natsBucket, "nats-bucket", "",
		"JetStream KeyValue bucket for results (empty disables)")
	cmd.Flags().BoolVar(&migrateDB, "migrate", false,
		"apply the embedded database migrations before storing the result")
	return cmd
}

//nolint:funlen,cyclop // setup sequence
func runRace(ctx context.Context, out io.Writer) error {
	if _, err := cmdutil.SetupLogger(os.Stderr); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	s := &config.Race
	if err := s.Validate(); err != nil {
		return err
	}
	shutdown := cmdutil.SetupTelemetry(ctx)
	defer shutdown()

	seed := s.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	competitors, err := createCompetitors(s, rng)
	if err != nil {
		return err
	}
	log.Info("Starting race",
		log.Int("competitors", len(competitors)),
		log.Uint64("seed", seed),
		log.Bool("fast", s.Fast))

	opts := []session.Option{
		session.WithRaceOptions(s.RaceOptions()...),
		session.WithSchedulerOptions(scheduler.WithFlipInterval(s.FlipInterval)),
		session.WithSettings(s.Model(len(competitors), seed)),
	}
	if !quiet {
		renderer := console.New(out, console.WithCountdownEvery(countdownEvery))
		opts = append(opts, session.WithSink(renderer.Consume))
	}

	if config.NatsURL != "" {
		natsOpts, closeNats, err := natsOptions(ctx)
		if err != nil {
			return err
		}
		defer closeNats()
		opts = append(opts, natsOpts...)
	}
	if config.DB != "" {
		pool, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		opts = append(opts, session.WithResultHandler(storeResult(pool)))
	}

	sess, err := session.New(competitors, opts...)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	var res *model.RaceResult
	if s.Fast {
		res, err = sess.RunFast(runCtx)
	} else {
		res, err = sess.RunRealtime(runCtx)
	}
	if res != nil {
		if werr := writeResult(out, res); werr != nil {
			log.Error("Could not write result", log.ErrorField(werr))
		}
	}
	return err
}

func createCompetitors(s *config.RaceSettings, rng *rand.Rand) ([]*race.Competitor, error) {
	if s.Roster == "" {
		return race.GenerateCompetitors(s.Competitors, rng, s.CompetitorSettings()), nil
	}
	entries, err := roster.LoadFile(s.Roster)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", s.Roster, err)
	}
	return roster.Competitors(entries, rng, s.CompetitorSettings())
}

func natsOptions(ctx context.Context) (opts []session.Option, closer func(), err error) {
	if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
		if err = utils.WaitForTCP(ctx, addr, cmdutil.WaitTimeout()); err != nil {
			return nil, nil, fmt.Errorf("nats not ready: %w", err)
		}
	}
	nc, err := natsPublish.Connect(config.NatsURL)
	if err != nil {
		return nil, nil, err
	}
	pubOpts := []natsPublish.Option{natsPublish.WithContext(ctx)}
	if natsBucket != "" {
		kv, err := natsPublish.OpenResultBucket(ctx, nc, natsBucket)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("open bucket %s: %w", natsBucket, err)
		}
		pubOpts = append(pubOpts, natsPublish.WithResultStore(kv))
	}
	pub := natsPublish.NewPublisher(nc, pubOpts...)
	opts = []session.Option{
		session.WithSink(pub.Consume),
		session.WithResultHandler(func(ctx context.Context, res *model.RaceResult) error {
			return pub.PublishResult(res)
		}),
	}
	return opts, func() {
		sent, failed := pub.Stats()
		log.Debug("NATS publisher stats", log.Int("sent", sent), log.Int("failed", failed))
		nc.Close()
	}, nil
}

func openDB(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := cmdutil.OpenDB(ctx)
	if err != nil {
		return nil, err
	}
	if migrateDB {
		if err := migrate.MigrateDb(config.DB); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return pool, nil
}

func storeResult(pool *pgxpool.Pool) session.ResultHandler {
	return func(ctx context.Context, res *model.RaceResult) error {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			return result.Create(ctx, tx, res)
		})
		if err == nil {
			log.GetFromContext(ctx).Info("Result stored", log.String("id", res.ID))
		}
		return err
	}
}

func writeResult(w io.Writer, res *model.RaceResult) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return console.WriteResult(w, res)
}
