package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a reader account and the Credential Store record behind a token.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Nickname     string    `bun:"nickname,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull,default:'USER'"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Roles returns the role set embedded in tokens issued for u.
// An account holds exactly one primary role.
func (u *User) Roles() []string {
	if u == nil || u.Role == "" {
		return nil
	}
	return []string{u.Role}
}
