package domain

import "time"

// EventStatus is the lifecycle state of a calendar event.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCancelled EventStatus = "cancelled"
)

// Event is a locally stored calendar event. Remote cancellations mark the
// row cancelled rather than deleting it, so a later pull cannot resurrect it.
type Event struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	UserID      string      `json:"user_id" gorm:"index;not null"`
	Title       string      `json:"title" gorm:"size:512"`
	Description string      `json:"description" gorm:"type:text"`
	Location    string      `json:"location" gorm:"size:512"`
	StartTime   time.Time   `json:"start_time" gorm:"index"`
	EndTime     time.Time   `json:"end_time"`
	Status      EventStatus `json:"status" gorm:"size:20;not null"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}
