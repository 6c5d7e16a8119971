package store

import (
	"encoding/json"

	"nodechat/pkg/chat"
	"nodechat/pkg/logger"
	"nodechat/pkg/models"
)

// Hydrate replays persisted state into a registry at startup: tombstones
// first so deleted ids can never resurface, then every node snapshot.
// Returns the number of nodes restored.
func (s *Store) Hydrate(reg *chat.Registry) (int, error) {
	tombs, err := s.Tombstones()
	if err != nil {
		return 0, err
	}
	for _, id := range tombs {
		reg.MarkDeleted(id)
	}
	snaps, err := s.LoadNodes()
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, raw := range snaps {
		var st models.NodeState
		if err := json.Unmarshal(raw, &st); err != nil {
			logger.Error("hydrate_invalid_snapshot", "error", err)
			continue
		}
		if err := reg.Restore(st); err != nil {
			logger.Error("hydrate_restore_failed", "node", st.ID, "error", err)
			continue
		}
		restored++
	}
	logger.Info("hydrate_complete", "nodes", restored, "tombstones", len(tombs))
	return restored, nil
}
