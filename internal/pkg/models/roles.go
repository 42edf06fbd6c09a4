package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Role string

const (
	RoleMember         Role = "MEMBER"
	RoleFinanceOfficer Role = "FINANCE_OFFICER"
	RoleChairperson    Role = "CHAIRPERSON"
	RoleTreasurer      Role = "TREASURER"
	RoleSecretary      Role = "SECRETARY"
	RoleSuperAdmin     Role = "SUPER_ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleFinanceOfficer, RoleChairperson, RoleTreasurer, RoleSecretary, RoleSuperAdmin:
		return true
	}
	return false
}

// Actor is the caller identity supplied by the identity provider.
type Actor struct {
	MemberID primitive.ObjectID
	Role     Role
}

// HasRole reports whether role may perform an action gated on any of required.
// SUPER_ADMIN passes every role gate.
func HasRole(role Role, required ...Role) bool {
	if role == RoleSuperAdmin {
		return true
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}

// RequireRole returns Forbidden when the actor lacks every required role.
func RequireRole(actor Actor, action string, required ...Role) error {
	if HasRole(actor.Role, required...) {
		return nil
	}
	return NewForbidden("role %s may not %s", actor.Role, action)
}
