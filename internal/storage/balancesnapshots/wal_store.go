// Package balancesnapshots persists wallet valuations so each cycle can be
// compared with the previous one.
package balancesnapshots

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

const (
	defaultSnapshotDir   = "./wal/balance"
	snapshotSegmentLimit = 1000
	snapshotMaxSegments  = 100
	snapshotKeyPrefix    = "wallet_snapshot_"
)

// WALStore persists wallet snapshots in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed snapshot store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultSnapshotDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "snapshot_",
		SegmentThreshold: snapshotSegmentLimit,
		MaxSegments:      snapshotMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init balance snapshot WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save writes the snapshot to WAL.
func (s *WALStore) Save(snapshot domain.WalletSnapshot) error {
	if s == nil || s.wal == nil {
		return errors.New("balance snapshot store is not initialized")
	}
	if snapshot.Quote == "" {
		return errors.New("wallet snapshot quote is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal wallet snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, snapshotKeyPrefix+snapshot.Quote, payload)
}

// Latest returns the most recently saved snapshot. ok is false when nothing was saved yet.
func (s *WALStore) Latest() (domain.WalletSnapshot, bool, error) {
	if s == nil || s.wal == nil {
		return domain.WalletSnapshot{}, false, errors.New("balance snapshot store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest []byte
		found  bool
	)
	for m := range s.wal.Iterator() {
		if !strings.HasPrefix(m.Key, snapshotKeyPrefix) {
			continue
		}
		latest = m.Value
		found = true
	}
	if !found {
		return domain.WalletSnapshot{}, false, nil
	}

	var snapshot domain.WalletSnapshot
	if err := json.Unmarshal(latest, &snapshot); err != nil {
		return domain.WalletSnapshot{}, false, errors.Wrap(err, "decode wallet snapshot")
	}

	return snapshot, true, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("balance snapshot store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
