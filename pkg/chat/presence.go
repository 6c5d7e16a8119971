package chat

import "sort"

// presenceTracker records ephemeral typing signals per node. Entries are
// never swept by a background process; staleness is evaluated lazily when
// typingNow reads the map, which also evicts expired entries. Not
// internally synchronized; the owning node serializes access.
type presenceTracker struct {
	typing map[string]int64
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{typing: make(map[string]int64)}
}

func (p *presenceTracker) setTyping(addr string, now int64) {
	p.typing[addr] = now
}

func (p *presenceTracker) clearTyping(addr string) {
	delete(p.typing, addr)
}

// typingNow returns addresses whose signal falls within window of now,
// sorted for deterministic output. Stale entries are dropped as a side
// effect of the read.
func (p *presenceTracker) typingNow(now, window int64) []string {
	var out []string
	for addr, ts := range p.typing {
		if now-ts > window {
			delete(p.typing, addr)
			continue
		}
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
