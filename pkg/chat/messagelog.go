package chat

import (
	"fmt"

	"nodechat/pkg/models"
)

// messageLog is one node's append-only message record. Ids are contiguous
// starting at 1, so msgs[id-1] addresses any live entry. Not internally
// synchronized; the owning node serializes access.
type messageLog struct {
	msgs []models.Message
}

func newMessageLog() *messageLog { return &messageLog{} }

// append assigns the next sequence id and records the message. replyTo=0
// means not a reply; otherwise it must reference an existing id.
func (l *messageLog) append(senderID, senderName, content string, mt models.MessageType, atts []models.Attachment, replyTo int64, now int64) (*models.Message, error) {
	if replyTo != 0 && (replyTo < 1 || replyTo > int64(len(l.msgs))) {
		return nil, fmt.Errorf("reply to message %d: %w", replyTo, ErrInvalidReply)
	}
	m := models.Message{
		ID:          int64(len(l.msgs)) + 1,
		SenderID:    senderID,
		SenderName:  senderName,
		Content:     content,
		MessageType: mt,
		TS:          now,
		ReplyTo:     replyTo,
		Attachments: append([]models.Attachment(nil), atts...),
	}
	l.msgs = append(l.msgs, m)
	return &l.msgs[len(l.msgs)-1], nil
}

func (l *messageLog) get(id int64) (*models.Message, bool) {
	if id < 1 || id > int64(len(l.msgs)) {
		return nil, false
	}
	return &l.msgs[id-1], true
}

// cloneMessage copies m with its own reactions map and attachments slice.
// Every message handed past the node lock goes through here so later
// reaction mutations never touch a copy a caller is still reading.
func cloneMessage(m models.Message) models.Message {
	if len(m.Reactions) > 0 {
		rc := make(map[string][]string, len(m.Reactions))
		for sym, addrs := range m.Reactions {
			rc[sym] = append([]string(nil), addrs...)
		}
		m.Reactions = rc
	}
	if len(m.Attachments) > 0 {
		m.Attachments = append([]models.Attachment(nil), m.Attachments...)
	}
	return m
}

// slice returns the window of limit messages ending offset entries before
// the newest, oldest first. Deterministic for a fixed log state. Entries are
// deep copies; they never alias the live log.
func (l *messageLog) slice(limit, offset int) []models.Message {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return nil
	}
	end := len(l.msgs) - offset
	if end <= 0 {
		return nil
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.Message, 0, end-start)
	for _, m := range l.msgs[start:end] {
		out = append(out, cloneMessage(m))
	}
	return out
}

// addReaction records addr under symbol on the target message. Returns
// changed=false when the reaction already exists (idempotent no-op).
func (l *messageLog) addReaction(id int64, addr, symbol string) (bool, error) {
	m, ok := l.get(id)
	if !ok {
		return false, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	for _, a := range m.Reactions[symbol] {
		if a == addr {
			return false, nil
		}
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	m.Reactions[symbol] = append(m.Reactions[symbol], addr)
	return true, nil
}

// removeReaction is the symmetric idempotent removal.
func (l *messageLog) removeReaction(id int64, addr, symbol string) (bool, error) {
	m, ok := l.get(id)
	if !ok {
		return false, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	set := m.Reactions[symbol]
	for i, a := range set {
		if a == addr {
			set = append(set[:i], set[i+1:]...)
			if len(set) == 0 {
				delete(m.Reactions, symbol)
			} else {
				m.Reactions[symbol] = set
			}
			return true, nil
		}
	}
	return false, nil
}

func (l *messageLog) length() int { return len(l.msgs) }

// snapshot copies the full history for persistence.
func (l *messageLog) snapshot() []models.Message {
	out := make([]models.Message, 0, len(l.msgs))
	for _, m := range l.msgs {
		out = append(out, cloneMessage(m))
	}
	return out
}

func restoreMessageLog(msgs []models.Message) *messageLog {
	l := newMessageLog()
	l.msgs = append(l.msgs, msgs...)
	return l
}
