package repository

import (
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MappingRepository defines the interface for external reference mappings.
// Shared by all sync engines but partitioned by provider and resource kind.
type MappingRepository interface {
	// GetByLocalID returns the mapping for a local entity or nil when absent.
	GetByLocalID(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, localID string) (*integrationdomain.ExternalReferenceMapping, error)
	// GetByRemoteID returns the mapping for a provider-side id or nil when absent.
	GetByRemoteID(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, remoteID string) (*integrationdomain.ExternalReferenceMapping, error)
	// Upsert atomically inserts or refreshes the row keyed by
	// (user, provider, resource kind, local id).
	Upsert(mapping *integrationdomain.ExternalReferenceMapping) error
	// DeleteByProvider removes every mapping for a provider on disconnect.
	DeleteByProvider(userID string, provider integrationdomain.Provider) error
}

// mappingRepository implements MappingRepository interface
type mappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository creates a new instance of mappingRepository
func NewMappingRepository(db *gorm.DB) MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) GetByLocalID(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, localID string) (*integrationdomain.ExternalReferenceMapping, error) {
	var m integrationdomain.ExternalReferenceMapping
	err := r.db.Where("user_id = ? AND provider = ? AND resource_kind = ? AND local_id = ?", userID, provider, kind, localID).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepository) GetByRemoteID(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, remoteID string) (*integrationdomain.ExternalReferenceMapping, error) {
	var m integrationdomain.ExternalReferenceMapping
	err := r.db.Where("user_id = ? AND provider = ? AND resource_kind = ? AND remote_id = ?", userID, provider, kind, remoteID).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepository) Upsert(mapping *integrationdomain.ExternalReferenceMapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.New().String()
	}
	mapping.UpdatedAt = time.Now()

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}, {Name: "resource_kind"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"remote_id", "local_fingerprint", "remote_fingerprint", "updated_at",
		}),
	}).Create(mapping).Error
}

func (r *mappingRepository) DeleteByProvider(userID string, provider integrationdomain.Provider) error {
	return r.db.Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&integrationdomain.ExternalReferenceMapping{}).Error
}
