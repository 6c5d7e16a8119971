package models

// SecurityLevel is the policy tier governing default read/join permissions
// for a chat node. The set is closed; use ParseSecurityLevel to validate
// external input.
type SecurityLevel string

const (
	// SecurityOpen allows anyone to read; joining may still be capped.
	SecurityOpen SecurityLevel = "open"
	// SecurityRestricted requires membership to read or write; joining is
	// self-service.
	SecurityRestricted SecurityLevel = "restricted"
	// SecurityPrivate requires explicit admission via the governance invite
	// list for read, write and join alike.
	SecurityPrivate SecurityLevel = "private"
)

// ParseSecurityLevel validates a security level string. An empty string
// maps to the open default.
func ParseSecurityLevel(s string) (SecurityLevel, bool) {
	switch SecurityLevel(s) {
	case SecurityOpen, SecurityRestricted, SecurityPrivate:
		return SecurityLevel(s), true
	case "":
		return SecurityOpen, true
	}
	return "", false
}

// ChatType is a categorical tag controlling a node's default behavior.
type ChatType string

const (
	ChatPublicRoom        ChatType = "public-room"
	ChatItemSpecific      ChatType = "item-specific"
	ChatGovernanceCouncil ChatType = "governance-council"
)

// ParseChatType validates a chat type string. An empty string maps to
// item-specific, the common case for nodes attached to platform entities.
func ParseChatType(s string) (ChatType, bool) {
	switch ChatType(s) {
	case ChatPublicRoom, ChatItemSpecific, ChatGovernanceCouncil:
		return ChatType(s), true
	case "":
		return ChatItemSpecific, true
	}
	return "", false
}

// Settings is the per-node configuration bag. Zero values mean "no limit"
// except AllowAttachments which defaults off.
type Settings struct {
	MaxParticipants   int   `json:"maxParticipants,omitempty"`
	AllowAttachments  bool  `json:"allowAttachments,omitempty"`
	SlowModeSeconds   int   `json:"slowModeSeconds,omitempty"`
	MaxAttachmentSize int64 `json:"maxAttachmentSize,omitempty"`
}

// ModAction is a moderation action a governance rule set may grant.
type ModAction string

const (
	ModMute    ModAction = "mute"
	ModKick    ModAction = "kick"
	ModPromote ModAction = "promote"
)

// Governance describes who may act as moderator on a node and what actions
// moderators may take. Invited is the explicit admission list consulted for
// private nodes.
type Governance struct {
	Invited             []string `json:"invited,omitempty"`
	ModeratorCanMute    bool     `json:"moderatorCanMute,omitempty"`
	ModeratorCanKick    bool     `json:"moderatorCanKick,omitempty"`
	ModeratorCanPromote bool     `json:"moderatorCanPromote,omitempty"`
}

// Invites reports whether addr is on the governance invite list.
func (g Governance) Invites(addr string) bool {
	for _, a := range g.Invited {
		if a == addr {
			return true
		}
	}
	return false
}

// Grants reports whether governance rules grant the given moderation action
// to the moderator role. The creator role is granted every action.
func (g Governance) Grants(action ModAction) bool {
	switch action {
	case ModMute:
		return g.ModeratorCanMute
	case ModKick:
		return g.ModeratorCanKick
	case ModPromote:
		return g.ModeratorCanPromote
	}
	return false
}

// Statistics is the derived usage surface of one node.
type Statistics struct {
	TotalMessages         int64            `json:"totalMessages"`
	ActiveParticipants    int              `json:"activeParticipants"`
	LastActivityTimestamp int64            `json:"lastActivityTimestamp"`
	PopularHashtags       map[string]int64 `json:"popularHashtags,omitempty"`
}

// NodeState is the full observable and persisted surface of one chat node.
// Timestamps are UTC nanoseconds.
type NodeState struct {
	ID             string                 `json:"id"`
	ItemID         string                 `json:"itemId"`
	ItemType       string                 `json:"itemType"`
	ItemData       map[string]any         `json:"itemData,omitempty"`
	CreatorAddress string                 `json:"creatorAddress"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	ChatType       ChatType               `json:"chatType"`
	SecurityLevel  SecurityLevel          `json:"securityLevel"`
	CreatedAt      int64                  `json:"createdAt"`
	Settings       Settings               `json:"settings"`
	Governance     Governance             `json:"governance"`
	Participants   map[string]Participant `json:"participants"`
	MessageHistory []Message              `json:"messageHistory"`
	Statistics     Statistics             `json:"statistics"`

	// HashtagFirstSeen preserves the first-appearance rank of each hashtag
	// across restarts so popularity ties keep a stable order.
	HashtagFirstSeen map[string]int64 `json:"hashtagFirstSeen,omitempty"`
}
