// Package store is the durable write-through collaborator. The chat core is
// the in-memory authority; this package persists full node snapshots keyed
// by id, replays them at startup and tombstones deletions so dead ids stay
// dead across restarts.
package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"

	"nodechat/pkg/events"
	"nodechat/pkg/logger"
)

const (
	nodePrefix = "node:"
	tombPrefix = "tomb:node:"
)

// Store wraps one pebble database. It is injected rather than global so
// multiple instances can coexist in tests.
type Store struct {
	db   *pebble.DB
	path string
	// lastSeq tracks the highest mutation sequence applied per node so
	// snapshots published out of order are discarded. Touched only by the
	// single Run consumer.
	lastSeq map[string]int64
}

// Open opens (or creates) a pebble database at path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	return &Store{db: db, path: path, lastSeq: make(map[string]int64)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	logger.Info("pebble_closed")
	return err
}

// Ready reports whether the store is opened.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

// SaveNode persists one node snapshot, replacing any previous version.
func (s *Store) SaveNode(id string, data []byte) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := s.db.Set([]byte(nodePrefix+id), data, pebble.Sync); err != nil {
		logger.Error("save_node_failed", "node", id, "error", err)
		return err
	}
	return nil
}

// DeleteNode removes a node snapshot and writes its tombstone.
func (s *Store) DeleteNode(id string) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	b := s.db.NewBatch()
	_ = b.Delete([]byte(nodePrefix+id), nil)
	_ = b.Set([]byte(tombPrefix+id), []byte("1"), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("delete_node_failed", "node", id, "error", err)
		return err
	}
	return nil
}

// LoadNodes returns every persisted node snapshot.
func (s *Store) LoadNodes() ([][]byte, error) {
	return s.scan([]byte(nodePrefix), true)
}

// Tombstones returns the ids of deleted nodes.
func (s *Store) Tombstones() ([]string, error) {
	raw, err := s.scan([]byte(tombPrefix), false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		out = append(out, string(k[len(tombPrefix):]))
	}
	return out, nil
}

// scan iterates keys under prefix, returning values or keys.
func (s *Store) scan(prefix []byte, values bool) ([][]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if values {
			out = append(out, append([]byte(nil), iter.Value()...))
		} else {
			out = append(out, append([]byte(nil), iter.Key()...))
		}
	}
	return out, nil
}

// Run consumes the change-event stream and applies it write-through. It
// returns when ctx is cancelled or the channel closes. Deletions tombstone;
// everything else carries a full snapshot in the payload.
func (s *Store) Run(ctx context.Context, ch <-chan *events.Item) {
	for {
		select {
		case <-ctx.Done():
			return
		case it, ok := <-ch:
			if !ok {
				return
			}
			s.apply(it)
		}
	}
}

func (s *Store) apply(it *events.Item) {
	defer it.Done()
	switch it.Event.Type {
	case events.NodeDeleted:
		delete(s.lastSeq, it.Event.Node)
		if err := s.DeleteNode(it.Event.Node); err != nil {
			logger.Error("writethrough_delete_failed", "node", it.Event.Node, "error", err)
		}
	default:
		if len(it.Payload) == 0 {
			return
		}
		// publishing happens after the node lock is released, so two
		// mutations can arrive swapped; the newer snapshot must win
		if it.Event.Seq != 0 && it.Event.Seq <= s.lastSeq[it.Event.Node] {
			logger.Debug("writethrough_stale_snapshot", "node", it.Event.Node, "seq", it.Event.Seq)
			return
		}
		if err := s.SaveNode(it.Event.Node, it.Payload); err != nil {
			logger.Error("writethrough_save_failed", "node", it.Event.Node, "error", err)
			return
		}
		if it.Event.Seq != 0 {
			s.lastSeq[it.Event.Node] = it.Event.Seq
		}
	}
}
