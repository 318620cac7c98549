package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/ioutils"
	"github.com/moby/ipamkit/ipam"
	"github.com/moby/ipamkit/store"
)

const (
	stateFile  = "state.json"
	ledgerFile = "audit.db"
)

// Env assembles the engine from the CLI's state directory: the JSON store
// snapshot plus the audit ledger. Call Close when done; call Save after a
// successful mutation to persist the new state.
type Env struct {
	Engine *ipam.Engine

	stateDir string
	ledger   *audit.Ledger
}

// Open loads the state directory named by the --state-dir flag, creating it
// on first use.
func Open(cmd *cobra.Command) (*Env, error) {
	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create state directory")
	}

	ledger, err := audit.Open(filepath.Join(stateDir, ledgerFile))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audit ledger")
	}

	s := store.NewMemoryStore(nil)
	statePath := filepath.Join(stateDir, stateFile)
	if f, err := os.Open(statePath); err == nil {
		err = s.ReadFrom(f)
		f.Close()
		if err != nil {
			ledger.Close()
			s.Close()
			return nil, errors.Wrapf(err, "failed to load state from %s", statePath)
		}
	} else if !os.IsNotExist(err) {
		ledger.Close()
		s.Close()
		return nil, err
	}

	return &Env{
		Engine:   ipam.NewEngine(s, ledger, ipam.DefaultConfig()),
		stateDir: stateDir,
		ledger:   ledger,
	}, nil
}

// Save persists the store snapshot. The write is atomic so a crash never
// leaves a truncated state file.
func (e *Env) Save() error {
	var buf bytes.Buffer
	if err := e.Engine.Store().WriteTo(&buf); err != nil {
		return err
	}
	return ioutils.AtomicWriteFile(filepath.Join(e.stateDir, stateFile), buf.Bytes(), 0600)
}

// Close releases the ledger and the store.
func (e *Env) Close() {
	e.ledger.Close()
	e.Engine.Store().Close()
}

// Context returns the request context for CLI operations.
func Context(cmd *cobra.Command) context.Context {
	return context.Background()
}
