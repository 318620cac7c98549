// Package audit implements the append-only ledger of engine state changes.
//
// Records are chained: every record carries the digest of its predecessor and
// a digest over its own content, so any modification of a stored record (or
// removal of one from the middle) breaks verification of every record after
// it. The ledger exposes appends and reads only; there is no update or delete.
package audit

import (
	"encoding/json"
	"time"

	"github.com/opencontainers/go-digest"
)

// Actions recorded by the engine.
const (
	ActionBootstrap          = "bootstrap"
	ActionAllocateRegion     = "allocate-region"
	ActionReleaseRegion      = "release-region"
	ActionAllocateHost       = "allocate-host"
	ActionReleaseHost        = "release-host"
	ActionReserve            = "reserve"
	ActionConvertReservation = "convert-reservation"
	ActionCancelReservation  = "cancel-reservation"
	ActionExpireReservation  = "expire-reservation"
	ActionSetQuota           = "set-quota"
)

// Record is one immutable ledger entry. Before and After hold JSON snapshots
// of the resource around the change; Seq, Parent and Digest are filled in by
// Append.
type Record struct {
	ID           string          `json:"id"`
	Seq          uint64          `json:"seq"`
	Action       string          `json:"action"`
	Actor        string          `json:"actor"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Parent       digest.Digest   `json:"parent,omitempty"`
	Digest       digest.Digest   `json:"digest"`
}

// Snapshot marshals a resource state for embedding in a record. A nil value
// yields a nil snapshot (used for creations' Before and deletions' After).
func Snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		// Engine types marshal cleanly; anything else is a programming error.
		panic(err)
	}
	return raw
}

// chainDigest computes the digest of a record's content combined with its
// parent digest. The record's own Digest field is excluded from the input.
func chainDigest(r *Record) (digest.Digest, error) {
	shadow := *r
	shadow.Digest = ""
	payload, err := json.Marshal(&shadow)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(append([]byte(r.Parent), payload...)), nil
}
