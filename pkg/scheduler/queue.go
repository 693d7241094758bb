package scheduler

import (
	"container/heap"
	"time"
)

type eventKind int

// order matters: at the same instant a flip is processed before the countdown
// and the countdown before any movement
const (
	kindFlip eventKind = iota
	kindCountdown
	kindMovement
)

func (k eventKind) String() string {
	switch k {
	case kindFlip:
		return "flip"
	case kindCountdown:
		return "countdown"
	case kindMovement:
		return "movement"
	}
	return "unknown"
}

type timedEvent struct {
	at           time.Duration
	kind         eventKind
	seq          uint64
	competitorID string
}

type eventHeap []timedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	if h[i].kind != h[j].kind {
		return h[i].kind < h[j].kind
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	//nolint:forcetypeassert // only timedEvent is pushed
	*h = append(*h, x.(timedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ret := old[n-1]
	*h = old[:n-1]
	return ret
}

// timedQueue is a priority queue of pending events ordered by time, kind and insertion
type timedQueue struct {
	h   eventHeap
	seq uint64
}

func (q *timedQueue) push(e timedEvent) {
	q.seq++
	e.seq = q.seq
	heap.Push(&q.h, e)
}

func (q *timedQueue) pop() timedEvent {
	//nolint:forcetypeassert // only timedEvent is stored
	return heap.Pop(&q.h).(timedEvent)
}

func (q *timedQueue) peek() (timedEvent, bool) {
	if len(q.h) == 0 {
		return timedEvent{}, false
	}
	return q.h[0], true
}

func (q *timedQueue) len() int {
	return len(q.h)
}

func (q *timedQueue) clear() {
	q.h = q.h[:0]
}
