package repository

import (
	"errors"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"gorm.io/gorm"
)

// ErrStateConsumed indicates the state nonce was already used or unknown.
var ErrStateConsumed = errors.New("oauth state already used or unknown")

// OAuthStateRepository tracks state nonces for replay protection.
type OAuthStateRepository interface {
	// Create records a freshly issued state nonce.
	Create(state *integrationdomain.OAuthState) error
	// Consume marks the nonce used. It fails with ErrStateConsumed when the
	// nonce is unknown or was consumed before, making second exchanges
	// impossible even under concurrent callbacks.
	Consume(nonce string) (*integrationdomain.OAuthState, error)
	// DeleteExpired prunes nonces past their expiry.
	DeleteExpired(before time.Time) error
}

// oauthStateRepository implements OAuthStateRepository interface
type oauthStateRepository struct {
	db *gorm.DB
}

// NewOAuthStateRepository creates a new instance of oauthStateRepository
func NewOAuthStateRepository(db *gorm.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Create(state *integrationdomain.OAuthState) error {
	return r.db.Create(state).Error
}

func (r *oauthStateRepository) Consume(nonce string) (*integrationdomain.OAuthState, error) {
	now := time.Now()

	// Single conditional UPDATE so two concurrent callbacks cannot both win.
	res := r.db.Model(&integrationdomain.OAuthState{}).
		Where("nonce = ? AND used_at IS NULL", nonce).
		Update("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStateConsumed
	}

	var state integrationdomain.OAuthState
	if err := r.db.Where("nonce = ?", nonce).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *oauthStateRepository) DeleteExpired(before time.Time) error {
	return r.db.Where("expires_at < ?", before).Delete(&integrationdomain.OAuthState{}).Error
}
