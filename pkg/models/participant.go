package models

// Role is a participant's role within one node. The set is closed.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleCreator   Role = "creator"
)

// Participant is one directory entry. Exactly one record exists per address
// per node; the node state keys participants by address, so Address is not
// serialized inside the record itself.
type Participant struct {
	Address    string  `json:"-"`
	Name       string  `json:"name"`
	Role       Role    `json:"role"`
	JoinedAt   int64   `json:"joinedAt"`
	Reputation float64 `json:"reputation"`
	// Muted members remain in the directory but may not send.
	Muted bool `json:"muted,omitempty"`

	// LastActiveAt tracks the most recent message or typing signal and
	// feeds the active-participant window. LastSentAt feeds slow mode and
	// is ephemeral.
	LastActiveAt int64 `json:"lastActiveAt,omitempty"`
	LastSentAt   int64 `json:"-"`
}
