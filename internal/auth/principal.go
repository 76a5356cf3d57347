package auth

import (
	"github.com/google/uuid"
	"github.com/stallpass/api/internal/enum"
)

// Principal is the authenticated caller as stored in the users table.
type Principal struct {
	UserID  uuid.UUID
	Role    string
	StallID uuid.NullUUID
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == enum.UserRoleAdmin
}

// CanManage reports whether the caller may act on a stall owned by ownerID.
func (p *Principal) CanManage(ownerID uuid.UUID) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin() || (p.Role == enum.UserRoleStallOwner && p.UserID == ownerID)
}
