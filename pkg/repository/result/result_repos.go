//nolint:whitespace //can't make both the linter and editor happy :(
package result

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/redlight-race-go/pkg/db/mytypes"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/repository"
)

var ErrNotFound = errors.New("race result not found")

// Create stores the result including all standings.
// Use a transaction as conn to make both inserts atomic.
func Create(ctx context.Context, conn repository.Querier, res *model.RaceResult) error {
	id, err := uuid.Parse(res.ID)
	if err != nil {
		return fmt.Errorf("invalid race id %q: %w", res.ID, err)
	}
	var winner *string
	if res.WinnerID != "" {
		winner = &res.WinnerID
	}
	_, err = conn.Exec(ctx, `
insert into race_result (id, started_at, finished_at, reason, winner_id, settings)
values ($1,$2,$3,$4,$5,$6)`,
		id, res.StartedAt, res.FinishedAt, res.Reason, winner,
		mytypes.RaceSettings(res.Settings))
	if err != nil {
		return err
	}
	for i := range res.Standings {
		s := &res.Standings[i]
		var rank *int
		if s.Rank > 0 {
			rank = &s.Rank
		}
		_, err = conn.Exec(ctx, `
insert into race_standing
(race_id, pos, competitor_id, name, status, progress, speed, interval_ms, rank)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			id, s.Pos, s.CompetitorID, s.Name, s.Status,
			decimal.NewFromFloat(s.Progress).Round(3),
			decimal.NewFromFloat(s.Speed).Round(3),
			s.IntervalMs, rank)
		if err != nil {
			return err
		}
	}
	return nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id string) (
	*model.RaceResult, error,
) {
	raceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid race id %q: %w", id, err)
	}
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where id=$1", selector), raceID)
	item, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if item.Standings, err = loadStandings(ctx, conn, raceID); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns the latest results first. limit <= 0 returns all.
func List(ctx context.Context, conn repository.Querier, limit int) (
	[]*model.RaceResult, error,
) {
	query := fmt.Sprintf("%s order by started_at desc", selector)
	args := []any{}
	if limit > 0 {
		query += " limit $1"
		args = append(args, limit)
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ret, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.RaceResult, error) {
		return scan(row)
	})
	if err != nil {
		return nil, err
	}
	for _, item := range ret {
		if item.Standings, err = loadStandings(ctx, conn, uuid.MustParse(item.ID)); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// DeleteByID removes a result and its standings, returns number of results deleted.
func DeleteByID(ctx context.Context, conn repository.Querier, id string) (int, error) {
	raceID, err := uuid.Parse(id)
	if err != nil {
		return 0, fmt.Errorf("invalid race id %q: %w", id, err)
	}
	cmdTag, err := conn.Exec(ctx, "delete from race_result where id=$1", raceID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = `select id::text, started_at, finished_at, reason,
coalesce(winner_id,''), settings from race_result`

func scan(row pgx.Row) (*model.RaceResult, error) {
	var item model.RaceResult
	var settings mytypes.RaceSettings
	if err := row.Scan(&item.ID, &item.StartedAt, &item.FinishedAt, &item.Reason,
		&item.WinnerID, &settings); err != nil {
		return nil, err
	}
	item.Settings = model.RaceSettings(settings)
	item.StartedAt = item.StartedAt.UTC()
	item.FinishedAt = item.FinishedAt.UTC()
	return &item, nil
}

func loadStandings(ctx context.Context, conn repository.Querier, id uuid.UUID) (
	[]model.Standing, error,
) {
	rows, err := conn.Query(ctx, strings.TrimSpace(`
select pos, competitor_id, name, status, progress, speed, interval_ms, coalesce(rank,0)
from race_standing where race_id=$1 order by pos asc`), id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Standing, error) {
		var s model.Standing
		var progress, speed decimal.Decimal
		err := row.Scan(&s.Pos, &s.CompetitorID, &s.Name, &s.Status,
			&progress, &speed, &s.IntervalMs, &s.Rank)
		s.Progress = progress.InexactFloat64()
		s.Speed = speed.InexactFloat64()
		return s, err
	})
}
