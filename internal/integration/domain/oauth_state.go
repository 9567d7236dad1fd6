package domain

import "time"

// OAuthState tracks one authorization attempt's state nonce. The signed
// state token embedded in the consent URL carries this nonce; the row is
// marked used on callback so a token can never be exchanged twice.
type OAuthState struct {
	Nonce     string     `json:"nonce" gorm:"primaryKey"`
	UserID    string     `json:"user_id" gorm:"index;not null"`
	Provider  Provider   `json:"provider" gorm:"size:50;not null"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM
func (OAuthState) TableName() string {
	return "oauth_states"
}
