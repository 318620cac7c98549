package watch

import (
	"sync"

	events "github.com/docker/go-events"
)

// dropErrClosed is a sink that suppresses ErrSinkClosed from Write, to avoid
// spurious errors when an event is written to a sink while the sink is being
// removed from the broadcaster. Since the channel is closed before the queue,
// there is a narrow window when this is possible.
type dropErrClosed struct {
	sink events.Sink
}

func (s dropErrClosed) Write(event events.Event) error {
	err := s.sink.Write(event)
	if err == events.ErrSinkClosed {
		err = nil
	}
	return err
}

func (s dropErrClosed) Close() error {
	return s.sink.Close()
}

// Queue is the structure used to publish events and watch for them.
type Queue struct {
	mu          sync.Mutex
	broadcast   *events.Broadcaster
	cancelFuncs map[events.Sink]func()
	closed      bool
}

// NewQueue creates a new publish/subscribe queue which supports watchers.
func NewQueue() *Queue {
	return &Queue{
		broadcast:   events.NewBroadcaster(),
		cancelFuncs: make(map[events.Sink]func()),
	}
}

// Watch returns a channel which will receive all items published to the
// queue from this point, until cancel is called.
func (q *Queue) Watch() (eventq chan events.Event, cancel func()) {
	return q.CallbackWatch(nil)
}

// CallbackWatch returns a channel which will receive all events published to
// the queue from this point that pass the check in the provided callback
// function. The returned cancel function will stop the flow of events and
// close the channel.
func (q *Queue) CallbackWatch(matcher events.Matcher) (eventq chan events.Event, cancel func()) {
	chEvent := events.NewChannel(0)
	sink := events.Sink(events.NewQueue(dropErrClosed{sink: chEvent}))

	if matcher != nil {
		sink = events.NewFilter(sink, matcher)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		ch := make(chan events.Event)
		close(ch)
		return ch, func() {}
	}

	q.broadcast.Add(sink)

	cancelFunc := func() {
		q.broadcast.Remove(sink)
		chEvent.Close()
		sink.Close()
	}

	externalCancelFunc := func() {
		q.mu.Lock()
		cancelFunc := q.cancelFuncs[sink]
		delete(q.cancelFuncs, sink)
		q.mu.Unlock()

		if cancelFunc != nil {
			cancelFunc()
		}
	}

	q.cancelFuncs[sink] = cancelFunc
	q.mu.Unlock()

	return chEvent.C, externalCancelFunc
}

// Publish adds an item to the queue.
func (q *Queue) Publish(item events.Event) {
	q.broadcast.Write(item)
}

// Close closes the queue and frees the associated resources. All watch
// channels are closed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	cancelFuncs := q.cancelFuncs
	q.cancelFuncs = make(map[events.Sink]func())
	q.mu.Unlock()

	for _, cancelFunc := range cancelFuncs {
		cancelFunc()
	}

	return q.broadcast.Close()
}
