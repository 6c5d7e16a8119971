package chat

import (
	"sort"

	"nodechat/pkg/models"
)

// participantDirectory holds one node's membership keyed by address. It is
// not internally synchronized; the owning node serializes access.
type participantDirectory struct {
	byAddr map[string]*models.Participant
	// order keeps addresses in join order so full member listings are
	// deterministic without re-sorting on every read.
	order []string
}

func newParticipantDirectory() *participantDirectory {
	return &participantDirectory{byAddr: make(map[string]*models.Participant)}
}

// join inserts a new member record. Idempotent: an existing record is
// returned unchanged with joined=false.
func (d *participantDirectory) join(addr, name string, role models.Role, now int64) (bool, *models.Participant) {
	if p, ok := d.byAddr[addr]; ok {
		return false, p
	}
	p := &models.Participant{
		Address:      addr,
		Name:         name,
		Role:         role,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	d.byAddr[addr] = p
	d.order = append(d.order, addr)
	return true, p
}

func (d *participantDirectory) leave(addr string) bool {
	if _, ok := d.byAddr[addr]; !ok {
		return false
	}
	delete(d.byAddr, addr)
	for i, a := range d.order {
		if a == addr {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

func (d *participantDirectory) get(addr string) (*models.Participant, bool) {
	p, ok := d.byAddr[addr]
	return p, ok
}

// all returns member records ordered by join time.
func (d *participantDirectory) all() []*models.Participant {
	out := make([]*models.Participant, 0, len(d.order))
	for _, a := range d.order {
		out = append(out, d.byAddr[a])
	}
	return out
}

func (d *participantDirectory) count() int { return len(d.byAddr) }

// activeCount returns how many members were active (message or typing)
// within the window ending at now.
func (d *participantDirectory) activeCount(now, window int64) int {
	n := 0
	for _, p := range d.byAddr {
		if p.LastActiveAt > 0 && now-p.LastActiveAt <= window {
			n++
		}
	}
	return n
}

// touch records activity for a member; no-op for unknown addresses.
func (d *participantDirectory) touch(addr string, now int64) {
	if p, ok := d.byAddr[addr]; ok {
		p.LastActiveAt = now
	}
}

// snapshot copies the directory into the persisted map form.
func (d *participantDirectory) snapshot() map[string]models.Participant {
	out := make(map[string]models.Participant, len(d.byAddr))
	for a, p := range d.byAddr {
		out[a] = *p
	}
	return out
}

// restore rebuilds the directory from a persisted map, recovering join
// order from joinedAt (addresses break exact-timestamp ties).
func restoreDirectory(m map[string]models.Participant) *participantDirectory {
	d := newParticipantDirectory()
	for addr := range m {
		d.order = append(d.order, addr)
	}
	sort.Slice(d.order, func(i, j int) bool {
		a, b := m[d.order[i]], m[d.order[j]]
		if a.JoinedAt != b.JoinedAt {
			return a.JoinedAt < b.JoinedAt
		}
		return d.order[i] < d.order[j]
	})
	for addr, p := range m {
		cp := p
		cp.Address = addr
		d.byAddr[addr] = &cp
	}
	return d
}
