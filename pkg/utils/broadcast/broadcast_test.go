package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](ch <-chan T) <-chan []T {
	ret := make(chan []T, 1)
	go func() {
		var items []T
		for item := range ch {
			items = append(items, item)
		}
		ret <- items
	}()
	return ret
}

func TestServer_FanOut(t *testing.T) {
	source := make(chan int)
	b := NewServer("test", source)

	first := collect(b.Subscribe())
	second := collect(b.Subscribe())

	for i := range 10 {
		source <- i
	}
	close(source)

	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, want, <-first)
	assert.Equal(t, want, <-second)

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("server not done")
	}
}

func TestServer_SubscribeAfterDone(t *testing.T) {
	source := make(chan string)
	b := NewServer("test", source)
	b.Close()

	ch := b.Subscribe()
	_, ok := <-ch
	assert.False(t, ok)
	b.CancelSubscription(ch)
}

func TestServer_CancelSubscription(t *testing.T) {
	source := make(chan int)
	b := NewServer("test", source, WithBufferSize[int](0))
	defer b.Close()

	ch := b.Subscribe()
	b.CancelSubscription(ch)
	_, ok := <-ch
	assert.False(t, ok)

	// no listener left, sending must not block
	source <- 1
}

func TestServer_SendTimeout(t *testing.T) {
	source := make(chan int)
	b := NewServer("test", source,
		WithBufferSize[int](0),
		WithSendTimeout[int](5*time.Millisecond))

	slow := b.Subscribe()
	source <- 1
	source <- 2
	close(source)
	<-b.Done()

	got := []int{}
	for v := range slow {
		got = append(got, v)
	}
	assert.Empty(t, got)

	impl, ok := b.(*server[int])
	require.True(t, ok)
	assert.Equal(t, int64(2), impl.numRcv.Load())
	assert.Equal(t, int64(2), impl.numSkip.Load())
}
