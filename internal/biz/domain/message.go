package domain

import "time"

// MessageStatus is the lifecycle status of a stored message
type MessageStatus string

const (
	MessageStatusReceived MessageStatus = "received"
	MessageStatusReplied  MessageStatus = "replied"
)

// InboundMessage is what the webhook hands to the pipeline
type InboundMessage struct {
	SenderID   string
	Text       string
	ReceivedAt time.Time
}

// MessageRecord represents one inbound message and its optional reply
type MessageRecord struct {
	ID            int64         `json:"id"`
	SenderID      string        `json:"from_number"`
	Text          string        `json:"message_text"`
	ReplyText     *string       `json:"response_text"`
	ReplyLatency  *float64      `json:"response_time"` // seconds
	KnowledgeUsed *bool         `json:"knowledge_used"`
	Status        MessageStatus `json:"status"`
	ReceivedAt    time.Time     `json:"timestamp"`
}

// IsReplied checks if the message has been answered
func (m *MessageRecord) IsReplied() bool {
	return m.Status == MessageStatusReplied
}

// Reply holds the fields written when a reply is delivered
type Reply struct {
	Text          string
	Latency       float64
	KnowledgeUsed bool
}

// MessageStats summarizes the message history
type MessageStats struct {
	Total           int64   `json:"total"`
	Replied         int64   `json:"replied"`
	Pending         int64   `json:"pending"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}
