//nolint:funlen //ok for this test code
package result_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/repository/result"
	"github.com/mpapenbr/redlight-race-go/testsupport/basedata"
	"github.com/mpapenbr/redlight-race-go/testsupport/testdb"
)

func TestCreate(t *testing.T) {
	pool := testdb.InitTestDb()
	basedata.CreateSampleResult(pool)
	ctx := context.Background()

	other := basedata.SampleResult()
	other.ID = "0f7f3e2c-8a53-4f53-9a0a-7c0e8f0e3a11"
	other.WinnerID = "C3"
	other.Reason = "sole-survivor"

	tests := []struct {
		name    string
		res     *model.RaceResult
		wantErr bool
	}{
		{name: "new entry", res: other},
		{name: "duplicate", res: basedata.SampleResult(), wantErr: true},
		{name: "invalid id", res: &model.RaceResult{ID: "not-a-uuid"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
				return result.Create(ctx, tx, tt.res)
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Create error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadByID(t *testing.T) {
	pool := testdb.InitTestDb()
	sample := basedata.CreateSampleResult(pool)
	ctx := context.Background()

	got, err := result.LoadByID(ctx, pool, sample.ID)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, sample)

	_, err = result.LoadByID(ctx, pool, "0f7f3e2c-8a53-4f53-9a0a-7c0e8f0e3a11")
	assert.Assert(t, errors.Is(err, result.ErrNotFound))

	_, err = result.LoadByID(ctx, pool, "invalid")
	assert.ErrorContains(t, err, "invalid race id")
}

func TestList(t *testing.T) {
	pool := testdb.InitTestDb()
	sample := basedata.CreateSampleResult(pool)
	ctx := context.Background()

	newer := basedata.SampleResult()
	newer.ID = "0f7f3e2c-8a53-4f53-9a0a-7c0e8f0e3a11"
	newer.StartedAt = sample.StartedAt.Add(time.Hour)
	newer.FinishedAt = sample.FinishedAt.Add(time.Hour)
	newer.Standings = nil
	assert.NilError(t, result.Create(ctx, pool, newer))

	all, err := result.List(ctx, pool, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(all), 2)
	assert.Equal(t, all[0].ID, newer.ID)
	assert.Equal(t, len(all[0].Standings), 0)
	assert.DeepEqual(t, all[1], sample)

	limited, err := result.List(ctx, pool, 1)
	assert.NilError(t, err)
	assert.Equal(t, len(limited), 1)
}

func TestDeleteByID(t *testing.T) {
	pool := testdb.InitTestDb()
	sample := basedata.CreateSampleResult(pool)
	ctx := context.Background()

	n, err := result.DeleteByID(ctx, pool, sample.ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	var standings int
	err = pool.QueryRow(ctx, "select count(*) from race_standing").Scan(&standings)
	assert.NilError(t, err)
	assert.Equal(t, standings, 0)

	n, err = result.DeleteByID(ctx, pool, sample.ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
}
