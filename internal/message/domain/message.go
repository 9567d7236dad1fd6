package domain

import "time"

// MessageType classifies a locally materialized message record.
type MessageType string

const (
	TypeEmailSummary     MessageType = "email_summary"
	TypeCommunicationLog MessageType = "communication_log"
)

// MessageSource marks where a message record came from.
type MessageSource string

const (
	SourceGmail       MessageSource = "gmail"
	SourceSlack       MessageSource = "slack"
	SourceManual      MessageSource = "manual"
	SourceAIGenerated MessageSource = "ai_generated"
)

// Message is a local record mirroring an ingested or generated message.
// The unique index on (user_id, external_reference_id) guarantees the same
// provider message never produces two rows.
type Message struct {
	ID                  string        `json:"id" gorm:"primaryKey"`
	UserID              string        `json:"user_id" gorm:"uniqueIndex:idx_user_extref;not null"`
	Type                MessageType   `json:"type" gorm:"size:50;not null"`
	Source              MessageSource `json:"source" gorm:"size:50;not null"`
	Subject             string        `json:"subject" gorm:"size:1024"`
	Sender              string        `json:"sender" gorm:"size:512"`
	Content             string        `json:"content" gorm:"type:text"`
	ExternalReferenceID string        `json:"external_reference_id" gorm:"uniqueIndex:idx_user_extref;size:256"`
	ReceivedAt          time.Time     `json:"received_at"`
	CreatedAt           time.Time     `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
