package models

// MessageType classifies a message entry.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageMedia  MessageType = "media"
)

// ParseMessageType validates a message type string; empty maps to text.
func ParseMessageType(s string) (MessageType, bool) {
	switch MessageType(s) {
	case MessageText, MessageSystem, MessageMedia:
		return MessageType(s), true
	case "":
		return MessageText, true
	}
	return "", false
}

// Attachment is a metadata reference to an externally stored file. The core
// never holds binary payloads.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is one append-only log entry. Ids are assigned per node starting
// at 1 with no gaps. Immutable once appended except for Reactions.
type Message struct {
	ID          int64       `json:"id"`
	SenderID    string      `json:"senderId"`
	SenderName  string      `json:"senderName,omitempty"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"messageType"`
	TS          int64       `json:"timestamp"`
	// ReplyTo references an earlier message id in the same node; 0 means
	// not a reply.
	ReplyTo int64 `json:"replyTo,omitempty"`
	// Reactions maps a reaction symbol to the set of reacting addresses,
	// kept in first-reaction order.
	Reactions   map[string][]string `json:"reactions,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
}
