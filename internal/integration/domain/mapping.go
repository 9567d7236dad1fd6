package domain

import "time"

// ResourceKind partitions the mapping namespace per entity type, so a
// calendar event id and a mail message id can never shadow each other even
// within the same provider.
type ResourceKind string

const (
	KindCalendarEvent ResourceKind = "calendar_event"
	KindMailMessage   ResourceKind = "mail_message"
)

// ExternalReferenceMapping links a local entity to its provider-side
// counterpart. The row is the single source of truth for "this local item
// already exists remotely": a local item with no mapping has never been
// pushed. Rows are removed only when the local item is deleted or the
// provider is disconnected.
type ExternalReferenceMapping struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	UserID       string       `json:"user_id" gorm:"uniqueIndex:idx_user_provider_local;index:idx_user_provider_remote;not null"`
	Provider     Provider     `json:"provider" gorm:"uniqueIndex:idx_user_provider_local;index:idx_user_provider_remote;size:50;not null"`
	ResourceKind ResourceKind `json:"resource_kind" gorm:"uniqueIndex:idx_user_provider_local;index:idx_user_provider_remote;size:30;not null"`
	LocalID      string       `json:"local_id" gorm:"uniqueIndex:idx_user_provider_local;not null"`
	RemoteID     string       `json:"remote_id" gorm:"index:idx_user_provider_remote;not null"`
	// LocalFingerprint records the local update timestamp at last successful
	// sync; RemoteFingerprint the remote one. The two sides run on different
	// clocks, so each direction compares only against its own baseline and a
	// sync-originated write is never mistaken for a user edit.
	LocalFingerprint  string    `json:"local_fingerprint" gorm:"size:256"`
	RemoteFingerprint string    `json:"remote_fingerprint" gorm:"size:256"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ExternalReferenceMapping) TableName() string {
	return "external_reference_mappings"
}

// FingerprintFromTime encodes an update timestamp as a mapping fingerprint.
func FingerprintFromTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// TimeFromFingerprint decodes a timestamp fingerprint. The zero time is
// returned for empty or unparseable fingerprints, which compares older than
// any real update time.
func TimeFromFingerprint(fp string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, fp)
	if err != nil {
		return time.Time{}
	}
	return t
}
