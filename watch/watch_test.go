package watch

import (
	"testing"

	events "github.com/docker/go-events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	watcher, cancel := q.Watch()

	q.Publish("foo")
	assert.Equal(t, "foo", <-watcher)

	q.Publish("bar")
	assert.Equal(t, "bar", <-watcher)

	cancel()
	// Cancelled watchers eventually stop receiving.
	q.Publish("baz")
	if ev, ok := <-watcher; ok {
		assert.Equal(t, "baz", ev)
		_, ok = <-watcher
		assert.False(t, ok)
	}
}

func TestCallbackWatch(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	watcher, cancel := q.CallbackWatch(events.MatcherFunc(func(event events.Event) bool {
		s, ok := event.(string)
		return ok && s[0] == 'a'
	}))
	defer cancel()

	q.Publish("bad")
	q.Publish("apple")
	assert.Equal(t, "apple", <-watcher)
}

func TestQueueClose(t *testing.T) {
	q := NewQueue()
	watcher, cancel := q.Watch()
	defer cancel()

	require.NoError(t, q.Close())

	_, ok := <-watcher
	assert.False(t, ok)

	// Watching a closed queue yields a closed channel.
	watcher2, cancel2 := q.Watch()
	defer cancel2()
	_, ok = <-watcher2
	assert.False(t, ok)
}
