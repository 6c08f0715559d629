package iam

import (
	"slices"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
)

// PrincipalRecord is the Credential Store's current view of a principal.
// Immutable once built; Roles is never shared with callers.
type PrincipalRecord struct {
	ID       int64
	Identity string
	Roles    []string
}

func recordFromUser(u *models.User) PrincipalRecord {
	return PrincipalRecord{
		ID:       u.ID,
		Identity: u.Nickname,
		Roles:    u.Roles(),
	}
}

func (p PrincipalRecord) clone() PrincipalRecord {
	p.Roles = slices.Clone(p.Roles)
	return p
}
