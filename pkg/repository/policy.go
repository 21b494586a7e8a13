package repository

import (
	"maps"

	"github.com/aquasafe/aquasafe/pkg/models"
)

// DefaultRestrictedPageCap is the page size ceiling for lower officials
const DefaultRestrictedPageCap = 10

// AccessPolicy decides how many records a role may see per page.
// A cap of 0 means the role receives the requested page size unmodified.
type AccessPolicy struct {
	caps     map[models.Role]int
	fallback int
}

// NewAccessPolicy builds a policy from role caps. Roles not present in caps
// get the fallback cap.
func NewAccessPolicy(caps map[models.Role]int, fallback int) AccessPolicy {
	return AccessPolicy{
		caps:     maps.Clone(caps),
		fallback: fallback,
	}
}

// DefaultAccessPolicy caps lower officials at 10 records per page
func DefaultAccessPolicy() AccessPolicy {
	return NewAccessPolicy(map[models.Role]int{
		models.RoleHigherOfficial: 0,
		models.RoleLowerOfficial:  DefaultRestrictedPageCap,
	}, DefaultRestrictedPageCap)
}

// Cap returns the page size ceiling for a role (0 = uncapped)
func (p AccessPolicy) Cap(role models.Role) int {
	if c, ok := p.caps[role]; ok {
		return c
	}
	return p.fallback
}

// EffectivePageSize applies the role cap to a requested page size
func (p AccessPolicy) EffectivePageSize(role models.Role, requested int) int {
	c := p.Cap(role)
	if c > 0 && requested > c {
		return c
	}
	return requested
}
