package race

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/redlight-race-go/pkg/config"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

const testRoster = `{"competitors":[
	{"id":"A","name":"Alice","speed":5,"intervalMs":1000},
	{"id":"B","name":"Bob","speed":3,"intervalMs":1000},
	{"id":"C","name":"Carol","speed":7,"intervalMs":1000}
]}`

func setupSettings(t *testing.T) {
	t.Helper()
	old := config.Race
	oldOutput, oldQuiet := output, quiet
	t.Cleanup(func() {
		config.Race = old
		output, quiet = oldOutput, oldQuiet
	})
	file := filepath.Join(t.TempDir(), "roster.json")
	require.NoError(t, os.WriteFile(file, []byte(testRoster), 0o600))

	config.Race = config.DefaultRaceSettings()
	config.Race.Roster = file
	config.Race.FinishDistance = 100
	config.Race.InitialSignal = "GO"
	config.Race.FlipInterval = time.Hour
	config.Race.Seed = 42
	config.Race.Fast = true
}

func TestRunRace_FastJSON(t *testing.T) {
	setupSettings(t)
	output = "json"
	quiet = true

	var buf bytes.Buffer
	require.NoError(t, runRace(context.Background(), &buf))

	var res model.RaceResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, "completed", res.Reason)
	assert.Equal(t, uint64(42), res.Settings.Seed)
	require.Len(t, res.Standings, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{
		res.Standings[0].CompetitorID,
		res.Standings[1].CompetitorID,
		res.Standings[2].CompetitorID,
	})
}

func TestRunRace_FastText(t *testing.T) {
	setupSettings(t)
	output = "text"
	quiet = false

	var buf bytes.Buffer
	require.NoError(t, runRace(context.Background(), &buf))
	out := buf.String()
	assert.Contains(t, out, "Carol Finished!")
	assert.Contains(t, out, "1. Carol\n2. Alice\n3. Bob\n")
}

func TestRunRace_InvalidSettings(t *testing.T) {
	setupSettings(t)
	config.Race.FinishDistance = 0
	assert.Error(t, runRace(context.Background(), &bytes.Buffer{}))
}

func TestCreateCompetitors_Generated(t *testing.T) {
	s := config.DefaultRaceSettings()
	s.Competitors = 4
	got, err := createCompetitors(&s, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "Player 4", got[3].Name())
}

func TestCreateCompetitors_MissingRoster(t *testing.T) {
	s := config.DefaultRaceSettings()
	s.Roster = filepath.Join(t.TempDir(), "missing.json")
	_, err := createCompetitors(&s, rand.New(rand.NewPCG(1, 1)))
	assert.Error(t, err)
}
