package chat

import (
	"fmt"

	"nodechat/pkg/events"
	"nodechat/pkg/logger"
	"nodechat/pkg/models"
)

// Moderation entry points. Each action is gated by canModerate against the
// node's governance rules; the creator can never be targeted.

// Mute sets or clears a member's muted flag. Muted members stay in the
// directory but fail the send policy.
func (r *Registry) Mute(id, requester, target string, muted bool) error {
	return r.moderate(id, requester, target, models.ModMute, func(p *models.Participant) {
		p.Muted = muted
	})
}

// Kick removes a member from the directory.
func (r *Registry) Kick(id, requester, target string) error {
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
	if !canModerate(n, requester, models.ModKick) {
		n.mu.Unlock()
		return fmt.Errorf("kick denied: %w", ErrPermissionDenied)
	}
	if target == n.creatorAddress {
		n.mu.Unlock()
		return fmt.Errorf("the creator cannot be kicked: %w", ErrPermissionDenied)
	}
	if !n.participants.leave(target) {
		n.mu.Unlock()
		return fmt.Errorf("participant %s: %w", target, ErrNotFound)
	}
	n.presence.clearTyping(target)
	n.stats.recordActivity(now)
	seq := n.nextSeq()
	st := n.stateLocked(now)
	n.mu.Unlock()

	logger.Info("participant_kicked", "node", id, "target", target, "by", requester)
	r.emit(events.ParticipantLeft, events.Event{Node: id, Actor: target, Seq: seq, TS: now}, marshalState(st))
	return nil
}

// Promote raises a member to moderator.
func (r *Registry) Promote(id, requester, target string) error {
	return r.moderate(id, requester, target, models.ModPromote, func(p *models.Participant) {
		if p.Role == models.RoleMember {
			p.Role = models.RoleModerator
		}
	})
}

func (r *Registry) moderate(id, requester, target string, action models.ModAction, apply func(*models.Participant)) error {
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
	if !canModerate(n, requester, action) {
		n.mu.Unlock()
		return fmt.Errorf("%s denied: %w", action, ErrPermissionDenied)
	}
	if target == n.creatorAddress {
		n.mu.Unlock()
		return fmt.Errorf("the creator cannot be targeted by %s: %w", action, ErrPermissionDenied)
	}
	p, ok := n.participants.get(target)
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("participant %s: %w", target, ErrNotFound)
	}
	apply(p)
	seq := n.nextSeq()
	st := n.stateLocked(now)
	n.mu.Unlock()

	logger.Info("participant_moderated", "node", id, "target", target, "action", string(action), "by", requester)
	r.emit(events.ParticipantUpdated, events.Event{Node: id, Actor: target, Seq: seq, TS: now}, marshalState(st))
	return nil
}

// SetReputation updates a member's externally supplied reputation score.
// The caller is a trusted collaborator; no policy check applies.
func (r *Registry) SetReputation(id, target string, reputation float64) error {
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
	p, ok := n.participants.get(target)
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("participant %s: %w", target, ErrNotFound)
	}
	p.Reputation = reputation
	seq := n.nextSeq()
	st := n.stateLocked(now)
	n.mu.Unlock()

	r.emit(events.ParticipantUpdated, events.Event{Node: id, Actor: target, Seq: seq, TS: now}, marshalState(st))
	return nil
}
