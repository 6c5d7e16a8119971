package chat

import (
	"fmt"
	"time"

	"nodechat/pkg/models"
)

// Access policy predicates. All functions expect the node lock to be held
// by the caller so check-then-act stays atomic. The security level and role
// sets are closed and validated at creation, so the switches below cover
// every variant.

// canRead reports whether addr may read node state. Open nodes are
// world-readable; otherwise membership is required.
func canRead(n *Node, addr string) bool {
	switch n.securityLevel {
	case models.SecurityOpen:
		return true
	case models.SecurityRestricted, models.SecurityPrivate:
		_, ok := n.participants.get(addr)
		return ok
	}
	return false
}

// canJoin decides whether addr may become a member. The caller handles the
// idempotent already-a-member case before asking.
func canJoin(n *Node, addr string) error {
	switch n.securityLevel {
	case models.SecurityOpen, models.SecurityRestricted:
		// self-service join, capped below
	case models.SecurityPrivate:
		if !n.governance.Invites(addr) {
			return fmt.Errorf("address not invited to private node: %w", ErrPermissionDenied)
		}
	}
	if max := n.settings.MaxParticipants; max > 0 && n.participants.count() >= max {
		return fmt.Errorf("node is at capacity (%d): %w", max, ErrPermissionDenied)
	}
	return nil
}

// canSend decides whether addr may append a message now. Membership is
// required; slow mode compares the member's last send against the
// configured interval and yields ErrRateLimited, never a silent drop.
func canSend(n *Node, addr string, now int64) error {
	p, ok := n.participants.get(addr)
	if !ok {
		return fmt.Errorf("sender is not a participant: %w", ErrPermissionDenied)
	}
	if p.Muted {
		return fmt.Errorf("sender is muted: %w", ErrPermissionDenied)
	}
	if secs := n.settings.SlowModeSeconds; secs > 0 && p.LastSentAt > 0 {
		interval := int64(secs) * int64(time.Second)
		if now-p.LastSentAt < interval {
			return fmt.Errorf("slow mode (%ds) in effect: %w", secs, ErrRateLimited)
		}
	}
	return nil
}

// canModerate reports whether addr may take the given moderation action.
// Creators hold every action; moderators hold what governance grants.
func canModerate(n *Node, addr string, action models.ModAction) bool {
	p, ok := n.participants.get(addr)
	if !ok {
		return false
	}
	switch p.Role {
	case models.RoleCreator:
		return true
	case models.RoleModerator:
		return n.governance.Grants(action)
	case models.RoleMember:
		return false
	}
	return false
}

// canEditMeta reports whether addr may update node display metadata.
func canEditMeta(n *Node, addr string) bool {
	p, ok := n.participants.get(addr)
	if !ok {
		return false
	}
	return p.Role == models.RoleCreator || p.Role == models.RoleModerator
}
