package domain

import "time"

// Provider identifies a third-party service exposing OAuth2-protected APIs.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderSlack  Provider = "slack"
)

// AllProviders lists every provider the hub can connect to.
var AllProviders = []Provider{ProviderGoogle, ProviderSlack}

// ParseProvider validates a provider name from the request path.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderGoogle, ProviderSlack:
		return Provider(s), true
	}
	return "", false
}

// CredentialStatus is the connection state of a stored credential.
type CredentialStatus string

const (
	StatusConnected    CredentialStatus = "connected"
	StatusExpired      CredentialStatus = "expired"
	StatusRevoked      CredentialStatus = "revoked"
	StatusDisconnected CredentialStatus = "disconnected"
)

// IntegrationCredential holds the OAuth2 tokens for one (user, provider) pair.
// At most one row exists per pair, enforced by a unique index.
type IntegrationCredential struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	UserID       string           `json:"user_id" gorm:"uniqueIndex:idx_user_provider;not null"`
	Provider     Provider         `json:"provider" gorm:"uniqueIndex:idx_user_provider;size:50;not null"`
	AccessToken  string           `json:"-" gorm:"size:4096;not null"`
	RefreshToken string           `json:"-" gorm:"size:4096"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Scopes       string           `json:"scopes" gorm:"size:2048"`
	Status       CredentialStatus `json:"status" gorm:"size:20;not null"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (IntegrationCredential) TableName() string {
	return "integration_credentials"
}

// TokenSet is the result of an OAuth2 exchange or refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}
