package mytypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceSettings_ValueScan(t *testing.T) {
	in := RaceSettings{Competitors: 3, FinishDistance: 600, WinMode: "timer", Seed: 12}
	v, err := in.Value()
	require.NoError(t, err)

	var out RaceSettings
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	var fromString RaceSettings
	require.NoError(t, fromString.Scan(`{"competitors":5}`))
	assert.Equal(t, 5, fromString.Competitors)

	assert.Error(t, fromString.Scan(42))
}
