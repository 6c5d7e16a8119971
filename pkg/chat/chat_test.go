package chat

import (
	"sync"
	"testing"
	"time"

	"nodechat/pkg/models"
)

// fakeClock lets tests control time for slow-mode and presence windows.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestRegistry(t *testing.T) (*Registry, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	return NewRegistry(Options{Now: clk.Now}), clk
}

func mustCreate(t *testing.T, reg *Registry, p CreateParams) models.NodeState {
	t.Helper()
	st, err := reg.CreateNode(p)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	return st
}

func openNode(t *testing.T, reg *Registry) models.NodeState {
	t.Helper()
	return mustCreate(t, reg, CreateParams{
		ItemID:         "item-1",
		ItemType:       "asset",
		CreatorAddress: "0xA",
		CreatorName:    "alice",
		Name:           "general",
	})
}

func mustJoin(t *testing.T, reg *Registry, id, addr, name string) JoinResult {
	t.Helper()
	res, err := reg.Join(id, addr, name)
	if err != nil {
		t.Fatalf("Join(%s): %v", addr, err)
	}
	return res
}

func mustSend(t *testing.T, reg *Registry, id, sender, content string) models.Message {
	t.Helper()
	msg, err := reg.Send(id, SendParams{Sender: sender, Content: content})
	if err != nil {
		t.Fatalf("Send(%s): %v", sender, err)
	}
	return msg
}
