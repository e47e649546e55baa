package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User owns library entries, ignore tombstones and source accounts. Accounts
// are provisioned elsewhere; this service only identifies callers by id.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `bun:",nullzero" json:"username"`
}
