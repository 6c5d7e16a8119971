package chat

import (
	"sync"

	"nodechat/pkg/models"
)

// Node is one access-controlled messaging channel scoped to an owning
// platform entity. All state-mutating operations on a node are serialized
// by mu; reads take the shared lock and return copies, never aliases.
// Nodes never contend with each other.
type Node struct {
	mu sync.RWMutex

	id             string
	itemID         string
	itemType       string
	itemData       map[string]any
	creatorAddress string
	name           string
	description    string
	chatType       models.ChatType
	securityLevel  models.SecurityLevel
	createdAt      int64
	settings       models.Settings
	governance     models.Governance

	participants *participantDirectory
	log          *messageLog
	presence     *presenceTracker
	stats        *statsAggregator

	// seq counts committed mutations. Change events carry it so the
	// write-through subscriber can discard snapshots published out of order.
	seq int64

	// deleted marks terminal removal; every operation on a deleted node
	// fails with ErrNotFound regardless of caller.
	deleted bool
}

// nextSeq stamps one committed mutation. Caller must hold the write lock.
func (n *Node) nextSeq() int64 {
	n.seq++
	return n.seq
}

// ID returns the node's immutable identifier.
func (n *Node) ID() string { return n.id }

// state renders the full observable surface. Caller must hold at least the
// read lock.
func (n *Node) stateLocked(now int64) models.NodeState {
	return models.NodeState{
		ID:               n.id,
		ItemID:           n.itemID,
		ItemType:         n.itemType,
		ItemData:         n.itemData,
		CreatorAddress:   n.creatorAddress,
		Name:             n.name,
		Description:      n.description,
		ChatType:         n.chatType,
		SecurityLevel:    n.securityLevel,
		CreatedAt:        n.createdAt,
		Settings:         n.settings,
		Governance:       n.governance,
		Participants:     n.participants.snapshot(),
		MessageHistory:   n.log.snapshot(),
		Statistics:       n.stats.snapshot(n.participants.activeCount(now, activeWindow)),
		HashtagFirstSeen: n.stats.firstSeenSnapshot(),
	}
}

// State returns a consistent copy of the node's observable surface.
func (n *Node) State(now int64) models.NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stateLocked(now)
}

func nodeFromState(st models.NodeState) *Node {
	return &Node{
		id:             st.ID,
		itemID:         st.ItemID,
		itemType:       st.ItemType,
		itemData:       st.ItemData,
		creatorAddress: st.CreatorAddress,
		name:           st.Name,
		description:    st.Description,
		chatType:       st.ChatType,
		securityLevel:  st.SecurityLevel,
		createdAt:      st.CreatedAt,
		settings:       st.Settings,
		governance:     st.Governance,
		participants:   restoreDirectory(st.Participants),
		log:            restoreMessageLog(st.MessageHistory),
		presence:       newPresenceTracker(),
		stats:          restoreStats(st.Statistics, st.HashtagFirstSeen),
	}
}
