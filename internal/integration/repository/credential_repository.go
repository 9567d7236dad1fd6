package repository

import (
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository defines the interface for credential persistence.
// The Credential Vault is the only component that writes through it.
type CredentialRepository interface {
	// GetByUserAndProvider returns the credential row or nil when absent.
	GetByUserAndProvider(userID string, provider integrationdomain.Provider) (*integrationdomain.IntegrationCredential, error)
	// GetAllByUser returns every credential the user has ever stored.
	GetAllByUser(userID string) ([]*integrationdomain.IntegrationCredential, error)
	// Upsert atomically inserts or overwrites the row keyed by (user, provider).
	Upsert(cred *integrationdomain.IntegrationCredential) error
	// UpdateStatus changes only the connection status.
	UpdateStatus(userID string, provider integrationdomain.Provider, status integrationdomain.CredentialStatus) error
}

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new instance of credentialRepository
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetByUserAndProvider(userID string, provider integrationdomain.Provider) (*integrationdomain.IntegrationCredential, error) {
	var cred integrationdomain.IntegrationCredential
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&cred).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) GetAllByUser(userID string) ([]*integrationdomain.IntegrationCredential, error) {
	var creds []*integrationdomain.IntegrationCredential
	if err := r.db.Where("user_id = ?", userID).Find(&creds).Error; err != nil {
		return nil, err
	}
	return creds, nil
}

func (r *credentialRepository) Upsert(cred *integrationdomain.IntegrationCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	cred.UpdatedAt = time.Now()

	// Atomic upsert keyed by the natural unique key so concurrent writers
	// cannot create a second row for the same (user, provider).
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at", "scopes", "status", "updated_at",
		}),
	}).Create(cred).Error
}

func (r *credentialRepository) UpdateStatus(userID string, provider integrationdomain.Provider, status integrationdomain.CredentialStatus) error {
	return r.db.Model(&integrationdomain.IntegrationCredential{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}
