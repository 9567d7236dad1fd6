package domain

import "time"

// RemoteEvent is a provider-neutral calendar event as returned by a
// provider client. Times are normalized to UTC by the client.
type RemoteEvent struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Updated     time.Time
	Cancelled   bool
}

// MailMessage is one fetched mailbox message.
type MailMessage struct {
	ID         string
	ThreadID   string
	From       string
	To         string
	Subject    string
	Snippet    string
	Body       string
	ReceivedAt time.Time
}

// OutgoingMail describes a message to send through the mail provider.
type OutgoingMail struct {
	To      string
	Subject string
	Body    string
	// ReplyToMessageID, when set, threads the outgoing mail under the
	// referenced provider message.
	ReplyToMessageID string
}

// Channel is one chat channel visible to the connected user.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Topic    string `json:"topic,omitempty"`
	IsMember bool   `json:"is_member"`
}

// ChatMessage is one message from a channel's history.
type ChatMessage struct {
	UserID string
	Text   string
	SentAt time.Time
}
