package chat

import (
	"errors"
	"testing"
	"time"

	"nodechat/pkg/models"
)

func TestJoinIdempotent(t *testing.T) {
	reg, clk := newTestRegistry(t)
	st := openNode(t, reg)

	first := mustJoin(t, reg, st.ID, "0xB", "bob")
	if !first.Joined {
		t.Fatalf("first join should report joined=true")
	}
	clk.Advance(time.Hour)
	second := mustJoin(t, reg, st.ID, "0xB", "someone-else")
	if second.Joined {
		t.Fatalf("second join should report joined=false")
	}
	if second.Participant.JoinedAt != first.Participant.JoinedAt {
		t.Fatalf("joinedAt changed on re-join: %d != %d", second.Participant.JoinedAt, first.Participant.JoinedAt)
	}
	if second.Participant.Name != "bob" {
		t.Fatalf("re-join overwrote the record: %+v", second.Participant)
	}

	got, err := reg.GetNode(st.ID, "0xA")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if len(got.Participants) != 2 {
		t.Fatalf("count after duplicate join = %d, want 2", len(got.Participants))
	}
}

func TestMaxParticipantsCap(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := mustCreate(t, reg, CreateParams{
		ItemID:         "item-1",
		CreatorAddress: "0xA",
		Name:           "tiny",
		Settings:       &models.Settings{MaxParticipants: 2},
	})
	mustJoin(t, reg, st.ID, "0xB", "bob")
	if _, err := reg.Join(st.ID, "0xC", "carol"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("join past cap: expected ErrPermissionDenied, got %v", err)
	}
	// re-join of an existing member is still fine at capacity
	if res := mustJoin(t, reg, st.ID, "0xB", "bob"); res.Joined {
		t.Fatalf("re-join at capacity should be idempotent, not a new entry")
	}
}

func TestLeave(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	mustJoin(t, reg, st.ID, "0xB", "bob")

	if err := reg.Leave(st.ID, "0xB"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := reg.Leave(st.ID, "0xB"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second leave: expected ErrNotFound, got %v", err)
	}
}

func TestCreatorMayNotLeave(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	if err := reg.Leave(st.ID, "0xA"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("creator leave: expected ErrPermissionDenied, got %v", err)
	}
}

func TestMembersOrderedByJoin(t *testing.T) {
	reg, clk := newTestRegistry(t)
	st := openNode(t, reg)
	clk.Advance(time.Minute)
	mustJoin(t, reg, st.ID, "0xC", "carol")
	clk.Advance(time.Minute)
	mustJoin(t, reg, st.ID, "0xB", "bob")

	members, err := reg.Members(st.ID, "0xA")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	want := []string{"0xA", "0xC", "0xB"}
	if len(members) != len(want) {
		t.Fatalf("members = %d, want %d", len(members), len(want))
	}
	for i, m := range members {
		if m.Address != want[i] {
			t.Fatalf("members[%d] = %s, want %s", i, m.Address, want[i])
		}
	}

	if _, err := reg.Members(st.ID, "0xZ"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("outsider member listing: expected ErrPermissionDenied, got %v", err)
	}
}

func TestModerationActions(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := mustCreate(t, reg, CreateParams{
		ItemID:         "item-1",
		CreatorAddress: "0xA",
		Name:           "governed",
		Governance:     &models.Governance{ModeratorCanMute: true, ModeratorCanPromote: false},
	})
	mustJoin(t, reg, st.ID, "0xB", "bob")
	mustJoin(t, reg, st.ID, "0xC", "carol")

	// members hold no moderation powers
	if err := reg.Mute(st.ID, "0xB", "0xC", true); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("member mute: expected ErrPermissionDenied, got %v", err)
	}
	// creator promotes B regardless of governance grants
	if err := reg.Promote(st.ID, "0xA", "0xB"); err != nil {
		t.Fatalf("creator promote: %v", err)
	}
	// moderator B may mute (granted) but not promote (not granted)
	if err := reg.Mute(st.ID, "0xB", "0xC", true); err != nil {
		t.Fatalf("moderator mute: %v", err)
	}
	if err := reg.Promote(st.ID, "0xB", "0xC"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("ungranted promote: expected ErrPermissionDenied, got %v", err)
	}
	// muted members cannot send
	if _, err := reg.Send(st.ID, SendParams{Sender: "0xC", Content: "hi"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("muted send: expected ErrPermissionDenied, got %v", err)
	}
	if err := reg.Mute(st.ID, "0xB", "0xC", false); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	mustSend(t, reg, st.ID, "0xC", "free again")
	// nobody moderates the creator
	if err := reg.Mute(st.ID, "0xB", "0xA", true); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("muting the creator: expected ErrPermissionDenied, got %v", err)
	}
}

func TestKick(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := mustCreate(t, reg, CreateParams{
		ItemID:         "item-1",
		CreatorAddress: "0xA",
		Name:           "strict",
		Governance:     &models.Governance{ModeratorCanKick: true},
	})
	mustJoin(t, reg, st.ID, "0xB", "bob")

	if err := reg.Kick(st.ID, "0xA", "0xB"); err != nil {
		t.Fatalf("Kick: %v", err)
	}
	if _, err := reg.Send(st.ID, SendParams{Sender: "0xB", Content: "hi"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("kicked member send: expected ErrPermissionDenied, got %v", err)
	}
	if err := reg.Kick(st.ID, "0xA", "0xA"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("kicking the creator: expected ErrPermissionDenied, got %v", err)
	}
}

func TestSetReputation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	st := openNode(t, reg)
	mustJoin(t, reg, st.ID, "0xB", "bob")

	if err := reg.SetReputation(st.ID, "0xB", 42.5); err != nil {
		t.Fatalf("SetReputation: %v", err)
	}
	got, _ := reg.GetNode(st.ID, "0xA")
	if got.Participants["0xB"].Reputation != 42.5 {
		t.Fatalf("reputation = %v, want 42.5", got.Participants["0xB"].Reputation)
	}
	if err := reg.SetReputation(st.ID, "0xZ", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown member: expected ErrNotFound, got %v", err)
	}
}
