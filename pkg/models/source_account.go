package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SourceAccount links a user to their account on a platform. The API key is
// only ever stored encrypted.
type SourceAccount struct {
	bun.BaseModel `bun:"table:source_accounts,alias:sa"`

	ID              int       `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UserID          int       `bun:",nullzero" json:"user_id"`
	Source          Source    `bun:",nullzero" json:"source"`
	AccountID       string    `json:"account_id"`
	APIKeyEncrypted *string   `json:"-"`
}

// HasAPIKey is safe to log or return.
func (sa *SourceAccount) HasAPIKey() bool {
	return sa.APIKeyEncrypted != nil && *sa.APIKeyEncrypted != ""
}
