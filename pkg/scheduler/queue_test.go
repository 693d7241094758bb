package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimedQueue_Order(t *testing.T) {
	q := timedQueue{}
	q.push(timedEvent{at: 2 * time.Second, kind: kindMovement, competitorID: "B"})
	q.push(timedEvent{at: 2 * time.Second, kind: kindMovement, competitorID: "A"})
	q.push(timedEvent{at: 2 * time.Second, kind: kindCountdown})
	q.push(timedEvent{at: 2 * time.Second, kind: kindFlip})
	q.push(timedEvent{at: time.Second, kind: kindMovement, competitorID: "C"})

	got := []string{}
	for q.len() > 0 {
		e := q.pop()
		got = append(got, e.kind.String()+":"+e.competitorID)
	}
	assert.Equal(t, []string{
		"movement:C",
		"flip:",
		"countdown:",
		"movement:B",
		"movement:A",
	}, got)

	q.push(timedEvent{at: time.Second})
	q.clear()
	_, ok := q.peek()
	assert.False(t, ok)
}
