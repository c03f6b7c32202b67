// Package auth holds the capability policy, bearer tokens and password
// hashing shared by every HTTP surface.
package auth

import (
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"slices"
)

type Capability string

const (
	CarsWrite      Capability = "cars:write"
	BookingsCreate Capability = "bookings:create"
	BookingsManage Capability = "bookings:manage"
	PaymentsCreate Capability = "payments:create"
	PaymentsManage Capability = "payments:manage"
	UsersRead      Capability = "users:read"
	UsersManage    Capability = "users:manage"
)

var allCapabilities = []Capability{
	CarsWrite,
	BookingsCreate,
	BookingsManage,
	PaymentsCreate,
	PaymentsManage,
	UsersRead,
	UsersManage,
}

var roleCapabilities = map[string][]Capability{
	config.RoleCustomer: {BookingsCreate, PaymentsCreate},
	config.RoleAdmin:    allCapabilities,
}

// CapabilitiesFor returns the capability set of role. Unknown roles get none.
func CapabilitiesFor(role string) []Capability {
	return slices.Clone(roleCapabilities[role])
}

type Actor struct {
	UserID string
	Role   string
}

func (a *Actor) Can(c Capability) bool {
	if a == nil {
		return false
	}
	return slices.Contains(roleCapabilities[a.Role], c)
}

func (a *Actor) Owns(ownerID string) bool {
	return a != nil && ownerID != "" && a.UserID == ownerID
}

// Authorize allows the actor when it holds c or owns the resource. Pass an
// empty ownerID for resources that have no owner.
func Authorize(actor *Actor, c Capability, ownerID string) error {
	if actor == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	if actor.Can(c) || actor.Owns(ownerID) {
		return nil
	}
	return apperrors.Forbidden("You do not have permission to perform this action")
}
