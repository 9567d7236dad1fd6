package repository

import (
	"time"

	eventdomain "flowdesk-backend/internal/event/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRepository defines the interface for local event persistence.
type EventRepository interface {
	// FindByID returns the event or nil when absent.
	FindByID(userID, eventID string) (*eventdomain.Event, error)
	// FindUpcoming returns future, non-cancelled events for push sync.
	FindUpcoming(userID string, after time.Time) ([]*eventdomain.Event, error)
	// Create inserts a new event.
	Create(event *eventdomain.Event) error
	// Update overwrites an existing event.
	Update(event *eventdomain.Event) error
	// MarkCancelled flips the event status to cancelled without deleting it.
	MarkCancelled(userID, eventID string) error
}

// eventRepository implements EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new instance of eventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(userID, eventID string) (*eventdomain.Event, error) {
	var event eventdomain.Event
	err := r.db.Where("user_id = ? AND id = ?", userID, eventID).First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindUpcoming(userID string, after time.Time) ([]*eventdomain.Event, error) {
	var events []*eventdomain.Event
	err := r.db.
		Where("user_id = ? AND start_time > ? AND status <> ?", userID, after, eventdomain.StatusCancelled).
		Order("start_time asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Create(event *eventdomain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	return r.db.Create(event).Error
}

func (r *eventRepository) Update(event *eventdomain.Event) error {
	return r.db.Save(event).Error
}

func (r *eventRepository) MarkCancelled(userID, eventID string) error {
	return r.db.Model(&eventdomain.Event{}).
		Where("user_id = ? AND id = ?", userID, eventID).
		Updates(map[string]interface{}{"status": eventdomain.StatusCancelled, "updated_at": time.Now()}).Error
}
