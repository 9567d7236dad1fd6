package repository

import (
	messagedomain "flowdesk-backend/internal/message/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for local message records.
type MessageRepository interface {
	// Create inserts a new message record.
	Create(message *messagedomain.Message) error
	// FindByExternalRef returns the record mirroring a provider message id,
	// or nil when the message was never ingested.
	FindByExternalRef(userID, externalRefID string) (*messagedomain.Message, error)
	// FindRecent returns the newest records for a user, newest first.
	FindRecent(userID string, limit int) ([]*messagedomain.Message, error)
}

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *messagedomain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	return r.db.Create(message).Error
}

func (r *messageRepository) FindByExternalRef(userID, externalRefID string) (*messagedomain.Message, error) {
	var msg messagedomain.Message
	err := r.db.Where("user_id = ? AND external_reference_id = ?", userID, externalRefID).First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindRecent(userID string, limit int) ([]*messagedomain.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []*messagedomain.Message
	err := r.db.Where("user_id = ?", userID).Order("received_at desc").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
