package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestMessageIDsStrictlyIncrease(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	for i := 1; i <= 5; i++ {
		msg := mustSend(t, reg, st.ID, "0xA", fmt.Sprintf("msg %d", i))
		if msg.ID != int64(i) {
			t.Fatalf("message id = %d, want %d", msg.ID, i)
		}
	}
}

func TestConcurrentAppendsNoGapsNoDuplicates(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	const workers = 8
	const perWorker = 25
	for i := 0; i < workers; i++ {
		mustJoin(t, reg, st.ID, fmt.Sprintf("0x%d", i), fmt.Sprintf("w%d", i))
	}

	var mu sync.Mutex
	var ids []int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				msg, err := reg.Send(st.ID, SendParams{Sender: sender, Content: "x"})
				if err != nil {
					t.Errorf("Send: %v", err)
					return
				}
				mu.Lock()
				ids = append(ids, msg.ID)
				mu.Unlock()
			}
		}(fmt.Sprintf("0x%d", i))
	}
	wg.Wait()

	if len(ids) != workers*perWorker {
		t.Fatalf("got %d ids, want %d", len(ids), workers*perWorker)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("id sequence broken at index %d: got %d, want %d", i, id, i+1)
		}
	}
}

func TestReplyValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	first := mustSend(t, reg, st.ID, "0xA", "root")

	if _, err := reg.Send(st.ID, SendParams{Sender: "0xA", Content: "bad", ReplyTo: 42}); !errors.Is(err, ErrInvalidReply) {
		t.Fatalf("reply to missing id: expected ErrInvalidReply, got %v", err)
	}
	reply, err := reg.Send(st.ID, SendParams{Sender: "0xA", Content: "ok", ReplyTo: first.ID})
	if err != nil {
		t.Fatalf("valid reply: %v", err)
	}
	if reply.ReplyTo != first.ID {
		t.Fatalf("replyTo = %d, want %d", reply.ReplyTo, first.ID)
	}
	// the failed append must not have consumed an id
	if reply.ID != first.ID+1 {
		t.Fatalf("failed append consumed an id: got %d, want %d", reply.ID, first.ID+1)
	}
}

func TestPaginationRoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	const total = 10
	for i := 1; i <= total; i++ {
		mustSend(t, reg, st.ID, "0xA", fmt.Sprintf("m%d", i))
	}

	const limit = 3
	p1, err := reg.Messages(st.ID, "0xA", limit, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	p2, err := reg.Messages(st.ID, "0xA", limit, limit)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}

	// newest window is ids 8,9,10; the next one back is 5,6,7
	wantFirst := []int64{8, 9, 10}
	wantSecond := []int64{5, 6, 7}
	for i, m := range p1.Messages {
		if m.ID != wantFirst[i] {
			t.Fatalf("page1[%d].ID = %d, want %d", i, m.ID, wantFirst[i])
		}
	}
	for i, m := range p2.Messages {
		if m.ID != wantSecond[i] {
			t.Fatalf("page2[%d].ID = %d, want %d", i, m.ID, wantSecond[i])
		}
	}
	if !p1.HasMore || !p2.HasMore {
		t.Fatalf("hasMore should hold while older messages remain")
	}

	p4, err := reg.Messages(st.ID, "0xA", limit, 9)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(p4.Messages) != 1 || p4.Messages[0].ID != 1 {
		t.Fatalf("deep page = %+v, want single message id 1", p4.Messages)
	}
	if p4.HasMore {
		t.Fatalf("hasMore must be false once the window covers the start: total=%d offset+limit=%d", total, 9+limit)
	}
}

func TestGetMessage(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	sent := mustSend(t, reg, st.ID, "0xA", "hello")

	got, err := reg.GetMessage(st.ID, sent.ID, "0xA")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Content != "hello" || got.SenderID != "0xA" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if _, err := reg.GetMessage(st.ID, 99, "0xA"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing message: expected ErrNotFound, got %v", err)
	}
}

func TestReactionsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	mustJoin(t, reg, st.ID, "0xB", "bob")
	msg := mustSend(t, reg, st.ID, "0xA", "react to me")

	changed, err := reg.AddReaction(st.ID, msg.ID, "0xB", "🔥")
	if err != nil || !changed {
		t.Fatalf("first AddReaction: changed=%v err=%v", changed, err)
	}
	changed, err = reg.AddReaction(st.ID, msg.ID, "0xB", "🔥")
	if err != nil || changed {
		t.Fatalf("duplicate AddReaction: changed=%v err=%v", changed, err)
	}
	// the same address may hold several different symbols at once
	if changed, _ = reg.AddReaction(st.ID, msg.ID, "0xB", "👍"); !changed {
		t.Fatalf("second symbol should be accepted")
	}

	got, _ := reg.GetMessage(st.ID, msg.ID, "0xA")
	if len(got.Reactions["🔥"]) != 1 || got.Reactions["🔥"][0] != "0xB" {
		t.Fatalf("reactions = %v", got.Reactions)
	}

	changed, err = reg.RemoveReaction(st.ID, msg.ID, "0xB", "🔥")
	if err != nil || !changed {
		t.Fatalf("RemoveReaction: changed=%v err=%v", changed, err)
	}
	changed, err = reg.RemoveReaction(st.ID, msg.ID, "0xB", "🔥")
	if err != nil || changed {
		t.Fatalf("second RemoveReaction: changed=%v err=%v", changed, err)
	}
	got, _ = reg.GetMessage(st.ID, msg.ID, "0xA")
	if _, ok := got.Reactions["🔥"]; ok {
		t.Fatalf("empty reaction set should be dropped: %v", got.Reactions)
	}
}

func TestReactionsRequireMembership(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	msg := mustSend(t, reg, st.ID, "0xA", "hi")

	if _, err := reg.AddReaction(st.ID, msg.ID, "0xZ", "🔥"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("outsider reaction: expected ErrPermissionDenied, got %v", err)
	}
}

func TestReturnedMessagesDoNotAliasLog(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	msg := mustSend(t, reg, st.ID, "0xA", "hold still")
	if _, err := reg.AddReaction(st.ID, msg.ID, "0xA", "🔥"); err != nil {
		t.Fatalf("AddReaction: %v", err)
	}

	page, err := reg.Messages(st.ID, "0xA", 10, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	single, err := reg.GetMessage(st.ID, msg.ID, "0xA")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}

	// mutate the live entry after the reads returned
	if _, err := reg.AddReaction(st.ID, msg.ID, "0xA", "👍"); err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	if _, err := reg.RemoveReaction(st.ID, msg.ID, "0xA", "🔥"); err != nil {
		t.Fatalf("RemoveReaction: %v", err)
	}

	if len(page.Messages[0].Reactions) != 1 || len(page.Messages[0].Reactions["🔥"]) != 1 {
		t.Fatalf("page copy mutated by later reactions: %v", page.Messages[0].Reactions)
	}
	if len(single.Reactions) != 1 || single.Reactions["🔥"][0] != "0xA" {
		t.Fatalf("message copy mutated by later reactions: %v", single.Reactions)
	}
}

func TestConcurrentReactionsAndPageReads(t *testing.T) {
	// fails under the race detector if read copies alias the live
	// reaction maps
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	mustJoin(t, reg, st.ID, "0xB", "bob")
	msg := mustSend(t, reg, st.ID, "0xA", "contended")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := reg.AddReaction(st.ID, msg.ID, "0xB", "🔥"); err != nil {
				t.Errorf("AddReaction: %v", err)
				return
			}
			if _, err := reg.RemoveReaction(st.ID, msg.ID, "0xB", "🔥"); err != nil {
				t.Errorf("RemoveReaction: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			page, err := reg.Messages(st.ID, "0xA", 10, 0)
			if err != nil {
				t.Errorf("Messages: %v", err)
				return
			}
			if _, err := json.Marshal(page); err != nil {
				t.Errorf("marshal page: %v", err)
				return
			}
			single, err := reg.GetMessage(st.ID, msg.ID, "0xA")
			if err != nil {
				t.Errorf("GetMessage: %v", err)
				return
			}
			if _, err := json.Marshal(single); err != nil {
				t.Errorf("marshal message: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestNegativeLimitTreatedAsEmptyWindow(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	mustSend(t, reg, st.ID, "0xA", "one")
	mustSend(t, reg, st.ID, "0xA", "two")

	page, err := reg.Messages(st.ID, "0xA", -5, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(page.Messages) != 0 || page.Total != 2 {
		t.Fatalf("page = %+v, want empty window with total 2", page)
	}
	if !page.HasMore {
		t.Fatalf("hasMore should hold: messages remain past the empty window")
	}

	// a fully consumed log with negative limit must not claim more
	empty, err := reg.Messages(st.ID, "0xA", -1, 2)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if empty.HasMore {
		t.Fatalf("hasMore must be false once offset covers the log: %+v", empty)
	}
}

func TestSliceEdgeCases(t *testing.T) {
	l := newMessageLog()
	for i := 0; i < 3; i++ {
		if _, err := l.append("0xA", "a", "m", "text", nil, 0, int64(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if got := l.slice(0, 0); got != nil {
		t.Fatalf("limit 0 should return nothing, got %v", got)
	}
	if got := l.slice(10, 0); len(got) != 3 {
		t.Fatalf("oversized limit should clamp: got %d", len(got))
	}
	if got := l.slice(2, 10); got != nil {
		t.Fatalf("offset past start should return nothing, got %v", got)
	}
	if got := l.slice(2, -1); len(got) != 2 {
		t.Fatalf("negative offset treated as 0: got %d", len(got))
	}
}
