package ipam

import (
	"path/filepath"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	events "github.com/docker/go-events"
	"github.com/stretchr/testify/require"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/store"
)

func newTestEngine(t *testing.T, config Config) (*Engine, *fakeclock.FakeClock) {
	fc := fakeclock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s := store.NewMemoryStore(fc)
	t.Cleanup(func() { s.Close() })

	ledger, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	return NewEngine(s, ledger, config), fc
}

func u32(v uint32) *uint32 {
	return &v
}

// tinyCatalog is a one-country catalog with a single X block (256 region
// slots), small enough to exhaust in a test.
func tinyCatalog() []*api.Country {
	return []*api.Country{
		{Code: "TT", Name: "Tinyland", Continent: "Atlantis", XStart: 0, XEnd: 0},
	}
}

// waitEvent blocks until an event matching pred arrives on the watch
// channel. Event delivery is asynchronous, so tests must wait rather than
// poll the channel.
func waitEvent(t *testing.T, watch chan events.Event, pred func(events.Event) bool) events.Event {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case event := <-watch:
			if pred(event) {
				return event
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}
