package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	ch := c.After(time.Second)
	immediate := c.After(0)
	assert.Equal(t, 1, c.Waiters())

	select {
	case got := <-immediate:
		assert.Equal(t, start, got)
	default:
		t.Fatal("expected immediate fire")
	}

	c.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("fired too early")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(time.Second), got)
	default:
		t.Fatal("expected fire")
	}
	assert.Zero(t, c.Waiters())
	assert.Equal(t, start.Add(time.Second), c.Now())
}
