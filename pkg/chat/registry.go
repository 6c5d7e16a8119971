package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nodechat/pkg/events"
	"nodechat/pkg/logger"
	"nodechat/pkg/models"
)

// Registry owns the collection of chat nodes and is the single entry point
// for every operation. It holds no process-wide state; multiple registries
// can coexist (tests, sharding). All business rules live in the access
// policy; the registry only does existence checks and composition.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	// tombs records ids of deleted nodes so an id is never reused and late
	// lookups keep reporting not-found after hydration.
	tombs map[string]struct{}

	bus      *events.Bus
	now      func() time.Time
	defaults models.Settings
}

// Options configures a Registry. Bus may be nil (no change events emitted);
// Now defaults to time.Now and exists for deterministic tests.
type Options struct {
	Bus             *events.Bus
	Now             func() time.Time
	DefaultSettings models.Settings
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		nodes:    make(map[string]*Node),
		tombs:    make(map[string]struct{}),
		bus:      opts.Bus,
		now:      now,
		defaults: opts.DefaultSettings,
	}
}

func (r *Registry) clock() int64 { return r.now().UTC().UnixNano() }

func (r *Registry) node(id string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[id]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
}

// emit publishes a change event carrying the node snapshot taken at commit
// time. Snapshot marshaling happens before the node lock is released so the
// payload reflects exactly the committed mutation.
func (r *Registry) emit(typ events.Type, ev events.Event, snapshot []byte) {
	if r.bus == nil {
		return
	}
	ev.Type = typ
	r.bus.Publish(ev, snapshot)
}

func marshalState(st models.NodeState) []byte {
	b, err := json.Marshal(st)
	if err != nil {
		logger.Error("node_snapshot_marshal_failed", "node", st.ID, "error", err)
		return nil
	}
	return b
}

// CreateParams carries everything Registry.CreateNode needs. ChatType,
// SecurityLevel and Settings fall back to defaults when zero.
type CreateParams struct {
	ItemID         string
	ItemType       string
	ItemData       map[string]any
	CreatorAddress string
	CreatorName    string
	Name           string
	Description    string
	ChatType       string
	SecurityLevel  string
	Settings       *models.Settings
	Governance     *models.Governance
}

// CreateNode creates a node and inserts the creator as its first
// participant with the creator role.
func (r *Registry) CreateNode(p CreateParams) (models.NodeState, error) {
	if strings.TrimSpace(p.ItemID) == "" {
		return models.NodeState{}, fmt.Errorf("itemId is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.CreatorAddress) == "" {
		return models.NodeState{}, fmt.Errorf("creatorAddress is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.Name) == "" {
		return models.NodeState{}, fmt.Errorf("name is required: %w", ErrInvalidArgument)
	}
	ct, ok := models.ParseChatType(p.ChatType)
	if !ok {
		return models.NodeState{}, fmt.Errorf("unknown chatType %q: %w", p.ChatType, ErrInvalidArgument)
	}
	sl, ok := models.ParseSecurityLevel(p.SecurityLevel)
	if !ok {
		return models.NodeState{}, fmt.Errorf("unknown securityLevel %q: %w", p.SecurityLevel, ErrInvalidArgument)
	}
	settings := r.defaults
	if p.Settings != nil {
		settings = *p.Settings
	}
	var gov models.Governance
	if p.Governance != nil {
		gov = *p.Governance
	}

	now := r.clock()
	n := &Node{
		id:             uuid.NewString(),
		itemID:         p.ItemID,
		itemType:       p.ItemType,
		itemData:       p.ItemData,
		creatorAddress: p.CreatorAddress,
		name:           p.Name,
		description:    p.Description,
		chatType:       ct,
		securityLevel:  sl,
		createdAt:      now,
		settings:       settings,
		governance:     gov,
		participants:   newParticipantDirectory(),
		log:            newMessageLog(),
		presence:       newPresenceTracker(),
		stats:          newStatsAggregator(),
	}
	n.participants.join(p.CreatorAddress, p.CreatorName, models.RoleCreator, now)
	n.stats.recordActivity(now)
	seq := n.nextSeq()

	r.mu.Lock()
	r.nodes[n.id] = n
	r.mu.Unlock()

	st := n.State(now)
	logger.Info("node_created", "node", n.id, "item", p.ItemID, "creator", p.CreatorAddress)
	r.emit(events.NodeCreated, events.Event{Node: n.id, Actor: p.CreatorAddress, Seq: seq, TS: now}, marshalState(st))
	return st, nil
}

// GetNode returns the node's observable state, gated by the read policy.
func (r *Registry) GetNode(id, requester string) (models.NodeState, error) {
	n, err := r.node(id)
	if err != nil {
		return models.NodeState{}, err
	}
	now := r.clock()
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return models.NodeState{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canRead(n, requester) {
		return models.NodeState{}, fmt.Errorf("read denied on node %s: %w", id, ErrPermissionDenied)
	}
	return n.stateLocked(now), nil
}

// Filter narrows AllNodes listings; empty fields match everything.
type Filter struct {
	ItemType string
	ChatType string
}

// NodesForItem lists the nodes owned by an item, filtered to those the
// requester may read.
func (r *Registry) NodesForItem(itemID, requester string) []models.NodeState {
	return r.list(requester, func(n *Node) bool { return n.itemID == itemID })
}

// AllNodes lists nodes matching the filter, restricted to those the
// requester may read.
func (r *Registry) AllNodes(f Filter, requester string) []models.NodeState {
	return r.list(requester, func(n *Node) bool {
		if f.ItemType != "" && n.itemType != f.ItemType {
			return false
		}
		if f.ChatType != "" && string(n.chatType) != f.ChatType {
			return false
		}
		return true
	})
}

func (r *Registry) list(requester string, match func(*Node) bool) []models.NodeState {
	r.mu.RLock()
	candidates := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		candidates = append(candidates, n)
	}
	r.mu.RUnlock()

	now := r.clock()
	var out []models.NodeState
	for _, n := range candidates {
		n.mu.RLock()
		if !n.deleted && match(n) && canRead(n, requester) {
			out = append(out, n.stateLocked(now))
		}
		n.mu.RUnlock()
	}
	return out
}

// DeleteNode terminally removes a node. Only the creator may delete;
// moderators may not (pending product intent). Deletion is atomic: once it
// returns, every subsequent operation on the id fails with not-found and
// the id is never reused.
func (r *Registry) DeleteNode(id, requester string) error {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		r.mu.Unlock()
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if requester != n.creatorAddress {
		n.mu.Unlock()
		r.mu.Unlock()
		return fmt.Errorf("only the creator may delete a node: %w", ErrPermissionDenied)
	}
	n.deleted = true
	delete(r.nodes, id)
	r.tombs[id] = struct{}{}
	n.mu.Unlock()
	r.mu.Unlock()

	now := r.clock()
	logger.Info("node_deleted", "node", id, "requester", requester)
	r.emit(events.NodeDeleted, events.Event{Node: id, Actor: requester, TS: now}, nil)
	return nil
}

// UpdateNodeMeta updates mutable display metadata (name, description).
// Creator and moderators only. Empty name is rejected; empty description
// clears it.
func (r *Registry) UpdateNodeMeta(id, requester, name, description string) (models.NodeState, error) {
	if strings.TrimSpace(name) == "" {
		return models.NodeState{}, fmt.Errorf("name is required: %w", ErrInvalidArgument)
	}
	n, err := r.node(id)
	if err != nil {
		return models.NodeState{}, err
	}
	now := r.clock()
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return models.NodeState{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canEditMeta(n, requester) {
		n.mu.Unlock()
		return models.NodeState{}, fmt.Errorf("metadata update denied: %w", ErrPermissionDenied)
	}
	n.name = name
	n.description = description
	seq := n.nextSeq()
	st := n.stateLocked(now)
	n.mu.Unlock()

	r.emit(events.NodeUpdated, events.Event{Node: id, Actor: requester, Seq: seq, TS: now}, marshalState(st))
	return st, nil
}

// JoinResult reports the outcome of a join. Joined is false when the
// address was already a member; the record is then returned unchanged.
type JoinResult struct {
	Joined      bool
	Participant models.Participant
}

// Join admits an address into a node's directory, idempotently.
func (r *Registry) Join(id, addr, name string) (JoinResult, error) {
	if strings.TrimSpace(addr) == "" {
		return JoinResult{}, fmt.Errorf("address is required: %w", ErrInvalidArgument)
	}
	n, err := r.node(id)
	if err != nil {
		return JoinResult{}, err
	}
	now := r.clock()
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return JoinResult{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if p, ok := n.participants.get(addr); ok {
		res := JoinResult{Joined: false, Participant: *p}
		n.mu.Unlock()
		return res, nil
	}
	if err := canJoin(n, addr); err != nil {
		n.mu.Unlock()
		return JoinResult{}, err
	}
	_, p := n.participants.join(addr, name, models.RoleMember, now)
	n.stats.recordActivity(now)
	seq := n.nextSeq()
	res := JoinResult{Joined: true, Participant: *p}
	st := n.stateLocked(now)
	n.mu.Unlock()

	logger.Info("participant_joined", "node", id, "address", addr)
	r.emit(events.ParticipantJoined, events.Event{Node: id, Actor: addr, Seq: seq, TS: now}, marshalState(st))
	return res, nil
}

// Leave removes an address from the directory. The creator may not leave
// without deleting the node (no ownership transfer yet).
func (r *Registry) Leave(id, addr string) error {
	n, err := r.node(id)
	if err != nil {
		return err
	}
	now := r.clock()
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if addr == n.creatorAddress {
		n.mu.Unlock()
		return fmt.Errorf("creator may not leave; delete the node instead: %w", ErrPermissionDenied)
	}
	if !n.participants.leave(addr) {
		n.mu.Unlock()
		return fmt.Errorf("participant %s: %w", addr, ErrNotFound)
	}
	n.presence.clearTyping(addr)
	n.stats.recordActivity(now)
	seq := n.nextSeq()
	st := n.stateLocked(now)
	n.mu.Unlock()

	logger.Info("participant_left", "node", id, "address", addr)
	r.emit(events.ParticipantLeft, events.Event{Node: id, Actor: addr, Seq: seq, TS: now}, marshalState(st))
	return nil
}

// Members lists the directory in join order. Restricted to members: the
// full listing is never exposed to outsiders, even on open nodes.
func (r *Registry) Members(id, requester string) ([]models.Participant, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if _, ok := n.participants.get(requester); !ok {
		return nil, fmt.Errorf("member listing requires membership: %w", ErrPermissionDenied)
	}
	ps := n.participants.all()
	out := make([]models.Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, *p)
	}
	return out, nil
}

// SendParams carries one message append.
type SendParams struct {
	Sender      string
	Content     string
	MessageType string
	Attachments []models.Attachment
	ReplyTo     int64
}

// Send appends a message. The sender must pass the send policy (membership,
// mute, slow mode); attachments must be enabled and within size limits.
func (r *Registry) Send(id string, p SendParams) (models.Message, error) {
	if strings.TrimSpace(p.Sender) == "" {
		return models.Message{}, fmt.Errorf("sender is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.Content) == "" && len(p.Attachments) == 0 {
		return models.Message{}, fmt.Errorf("content is required: %w", ErrInvalidArgument)
	}
	mt, ok := models.ParseMessageType(p.MessageType)
	if !ok {
		return models.Message{}, fmt.Errorf("unknown messageType %q: %w", p.MessageType, ErrInvalidArgument)
	}
	n, err := r.node(id)
	if err != nil {
		return models.Message{}, err
	}
	now := r.clock()
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return models.Message{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if err := canSend(n, p.Sender, now); err != nil {
		n.mu.Unlock()
		return models.Message{}, err
	}
	if len(p.Attachments) > 0 {
		if !n.settings.AllowAttachments {
			n.mu.Unlock()
			return models.Message{}, fmt.Errorf("attachments are disabled on this node: %w", ErrInvalidArgument)
		}
		if max := n.settings.MaxAttachmentSize; max > 0 {
			for _, a := range p.Attachments {
				if a.Size > max {
					n.mu.Unlock()
					return models.Message{}, fmt.Errorf("attachment %s exceeds %d bytes: %w", a.FileName, max, ErrInvalidArgument)
				}
			}
		}
	}
	sender, _ := n.participants.get(p.Sender)
	msg, err := n.log.append(p.Sender, sender.Name, p.Content, mt, p.Attachments, p.ReplyTo, now)
	if err != nil {
		n.mu.Unlock()
		return models.Message{}, err
	}
	sender.LastSentAt = now
	sender.LastActiveAt = now
	n.presence.clearTyping(p.Sender)
	n.stats.recordMessage(p.Content, now)
	seq := n.nextSeq()
	out := cloneMessage(*msg)
	st := n.stateLocked(now)
	n.mu.Unlock()

	logger.Debug("message_appended", "node", id, "msg", out.ID, "sender", p.Sender)
	r.emit(events.MessageAppended, events.Event{Node: id, Actor: p.Sender, MsgID: out.ID, Seq: seq, TS: now}, marshalState(st))
	return out, nil
}

// GetMessage returns one message by id, gated by the read policy.
func (r *Registry) GetMessage(id string, msgID int64, requester string) (models.Message, error) {
	n, err := r.node(id)
	if err != nil {
		return models.Message{}, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return models.Message{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canRead(n, requester) {
		return models.Message{}, fmt.Errorf("read denied on node %s: %w", id, ErrPermissionDenied)
	}
	m, ok := n.log.get(msgID)
	if !ok {
		return models.Message{}, fmt.Errorf("message %d: %w", msgID, ErrNotFound)
	}
	return cloneMessage(*m), nil
}

// Page is one pagination window over a node's history.
type Page struct {
	Messages []models.Message `json:"messages"`
	Total    int              `json:"total"`
	HasMore  bool             `json:"hasMore"`
}

// Messages returns the most recent limit messages, skipping offset from
// the end, oldest first within the window.
func (r *Registry) Messages(id, requester string, limit, offset int) (Page, error) {
	n, err := r.node(id)
	if err != nil {
		return Page{}, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return Page{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canRead(n, requester) {
		return Page{}, fmt.Errorf("read denied on node %s: %w", id, ErrPermissionDenied)
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	total := n.log.length()
	return Page{
		Messages: n.log.slice(limit, offset),
		Total:    total,
		HasMore:  total > offset+limit,
	}, nil
}

// AddReaction records requester's reaction on a message. Participants only.
// Returns changed=false when the identical reaction already exists.
func (r *Registry) AddReaction(id string, msgID int64, requester, symbol string) (bool, error) {
	return r.react(id, msgID, requester, symbol, true)
}

// RemoveReaction removes requester's reaction; idempotent.
func (r *Registry) RemoveReaction(id string, msgID int64, requester, symbol string) (bool, error) {
	return r.react(id, msgID, requester, symbol, false)
}

func (r *Registry) react(id string, msgID int64, requester, symbol string, add bool) (bool, error) {
	if strings.TrimSpace(symbol) == "" {
		return false, fmt.Errorf("symbol is required: %w", ErrInvalidArgument)
	}
	n, err := r.node(id)
	if err != nil {
		return false, err
	}
	now := r.clock()
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return false, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if _, ok := n.participants.get(requester); !ok {
		n.mu.Unlock()
		return false, fmt.Errorf("reactions require membership: %w", ErrPermissionDenied)
	}
	var changed bool
	if add {
		changed, err = n.log.addReaction(msgID, requester, symbol)
	} else {
		changed, err = n.log.removeReaction(msgID, requester, symbol)
	}
	if err != nil {
		n.mu.Unlock()
		return false, err
	}
	var st models.NodeState
	var seq int64
	if changed {
		n.participants.touch(requester, now)
		n.stats.recordActivity(now)
		seq = n.nextSeq()
		st = n.stateLocked(now)
	}
	n.mu.Unlock()

	if changed {
		r.emit(events.ReactionChanged, events.Event{Node: id, Actor: requester, MsgID: msgID, Seq: seq, TS: now}, marshalState(st))
	}
	return changed, nil
}

// SetTyping records a typing signal for a current participant. Presence is
// best-effort: unknown addresses are a silent no-op, not an error.
func (r *Registry) SetTyping(id, addr string) error {
	n, err := r.node(id)
	if err != nil {
		return err
	}
	now := r.clock()
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deleted {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if _, ok := n.participants.get(addr); !ok {
		return nil
	}
	n.presence.setTyping(addr, now)
	n.participants.touch(addr, now)
	n.stats.recordActivity(now)
	return nil
}

// ClearTyping removes a typing signal if present.
func (r *Registry) ClearTyping(id, addr string) error {
	n, err := r.node(id)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deleted {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.presence.clearTyping(addr)
	return nil
}

// TypingNow lists addresses typing within the window, gated by the read
// policy. Stale entries are evicted lazily by this read.
func (r *Registry) TypingNow(id, requester string, window time.Duration) ([]string, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	now := r.clock()
	// typingNow evicts stale entries, so this read takes the write lock.
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deleted {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canRead(n, requester) {
		return nil, fmt.Errorf("read denied on node %s: %w", id, ErrPermissionDenied)
	}
	return n.presence.typingNow(now, int64(window)), nil
}

// Stats returns the node's derived statistics, gated by the read policy.
func (r *Registry) Stats(id, requester string) (models.Statistics, error) {
	n, err := r.node(id)
	if err != nil {
		return models.Statistics{}, err
	}
	now := r.clock()
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return models.Statistics{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canRead(n, requester) {
		return models.Statistics{}, fmt.Errorf("read denied on node %s: %w", id, ErrPermissionDenied)
	}
	return n.stats.snapshot(n.participants.activeCount(now, activeWindow)), nil
}

// TopHashtags lists the n most frequent hashtags, gated by the read policy.
func (r *Registry) TopHashtags(id, requester string, nTop int) ([]HashtagCount, error) {
	n, err := r.node(id)
	if err != nil {
		return nil, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.deleted {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if !canRead(n, requester) {
		return nil, fmt.Errorf("read denied on node %s: %w", id, ErrPermissionDenied)
	}
	return n.stats.topHashtags(nTop), nil
}
