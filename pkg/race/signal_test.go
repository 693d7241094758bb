package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal_Flip(t *testing.T) {
	s := NewSignal(Stop)
	assert.Equal(t, Stop, s.Current())
	assert.Equal(t, Go, s.Flip())
	assert.Equal(t, Stop, s.Flip())
	assert.Equal(t, Stop, s.Current())
}

func TestParseSignalState(t *testing.T) {
	tests := []struct {
		in      string
		want    SignalState
		wantErr bool
	}{
		{in: "GO", want: Go},
		{in: "green", want: Go},
		{in: "stop", want: Stop},
		{in: "Red", want: Stop},
		{in: "yellow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSignalState(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "Green Light", Go.Message())
	assert.Equal(t, "Red Light", Stop.Message())
}
