package chat

import (
	"encoding/json"
	"fmt"

	"nodechat/pkg/models"
)

// Hydration and snapshot hooks for the persistence collaborator.

// Restore installs a persisted node state into the registry. Tombstoned ids
// are ignored so a deleted node can never resurface from stale snapshots.
func (r *Registry) Restore(st models.NodeState) error {
	if st.ID == "" {
		return fmt.Errorf("node state without id: %w", ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dead := r.tombs[st.ID]; dead {
		return nil
	}
	r.nodes[st.ID] = nodeFromState(st)
	return nil
}

// MarkDeleted records a tombstone discovered during hydration.
func (r *Registry) MarkDeleted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
	r.tombs[id] = struct{}{}
}

// Snapshot marshals one node's full state for persistence. Internal
// collaborator hook; no access policy applies.
func (r *Registry) Snapshot(id string) ([]byte, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	now := r.clock()
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return json.Marshal(n.stateLocked(now))
}

// LiveIDs lists the ids of all live nodes, for periodic snapshot sweeps.
func (r *Registry) LiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		out = append(out, id)
	}
	return out
}

// Len reports how many live nodes the registry holds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
