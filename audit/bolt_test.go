package audit

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, path
}

func testRecord(actor, action, resourceID string, ts time.Time) *Record {
	return &Record{
		Action:       action,
		Actor:        actor,
		ResourceType: "region",
		ResourceID:   resourceID,
		After:        Snapshot(map[string]int{"x": 1}),
		Timestamp:    ts,
	}
}

func TestLedgerAppendAndQuery(t *testing.T) {
	l, _ := openTestLedger(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(testRecord("alice", ActionAllocateRegion, "r1", base)))
	require.NoError(t, l.Append(testRecord("bob", ActionAllocateRegion, "r2", base.Add(time.Minute))))
	require.NoError(t, l.Append(testRecord("alice", ActionReleaseRegion, "r1", base.Add(2*time.Minute))))

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(0), all[0].Seq)
	assert.Equal(t, uint64(2), all[2].Seq)
	assert.Equal(t, all[0].Digest, all[1].Parent)

	byActor, err := l.ByActor("alice")
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byResource, err := l.ByResource("region", "r1")
	require.NoError(t, err)
	assert.Len(t, byResource, 2)

	byRange, err := l.ByTimeRange(base.Add(30*time.Second), base.Add(90*time.Second))
	require.NoError(t, err)
	require.Len(t, byRange, 1)
	assert.Equal(t, "r2", byRange[0].ResourceID)
}

func TestLedgerRejectsZeroTimestamp(t *testing.T) {
	l, _ := openTestLedger(t)
	err := l.Append(&Record{Action: ActionBootstrap, Actor: "system"})
	assert.Error(t, err)
}

func TestLedgerReopenContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	l, err := Open(path)
	require.NoError(t, err)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(testRecord("alice", ActionAllocateRegion, "r1", ts)))
	head := l.head
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, head, l.head)
	assert.Equal(t, uint64(1), l.nextSeq)

	require.NoError(t, l.Append(testRecord("alice", ActionReleaseRegion, "r1", ts.Add(time.Minute))))
	require.NoError(t, l.VerifyChain())
}

func TestLedgerVerifyDetectsTampering(t *testing.T) {
	l, path := openTestLedger(t)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(testRecord("alice", ActionAllocateRegion, "r1", ts)))
	require.NoError(t, l.Append(testRecord("bob", ActionAllocateRegion, "r2", ts.Add(time.Minute))))
	require.NoError(t, l.VerifyChain())
	require.NoError(t, l.Close())

	// Rewrite record 0 behind the ledger's back.
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], 0)
		var r Record
		require.NoError(t, json.Unmarshal(b.Get(key[:]), &r))
		r.Actor = "mallory"
		forged, err := json.Marshal(&r)
		require.NoError(t, err)
		return b.Put(key[:], forged)
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	err = l.VerifyChain()
	assert.Equal(t, ErrChainBroken, errors.Cause(err))
}
