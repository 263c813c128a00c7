package domain

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup ChatType = "group"
	ChatTypeP2P   ChatType = "p2p"
)

// InboundMessage is one received chat message as seen by the command
// interpreter.
type InboundMessage struct {
	ChatID   string // conversation to reply into
	MsgID    string
	SenderID string
	Content  string
	ChatType ChatType
}

// IsOneToOne reports whether the message came from a one-to-one
// conversation. Group conversations are ignored by the interpreter.
func (m *InboundMessage) IsOneToOne() bool {
	return m.ChatType == ChatTypeP2P
}
