package domain

// Role identifies what a user is allowed to do. The set is closed;
// anything outside it never grants access.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RolePatient    Role = "patient"

	// roleAny is the wildcard member carried by AnyRole. It is not a
	// valid role for a user record.
	roleAny Role = "*"
)

// Valid reports whether r is one of the enumerated user roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePharmacist, RolePatient:
		return true
	}
	return false
}

// RoleSet is the set of roles a route accepts.
type RoleSet []Role

// AnyRole accepts every valid role. An empty RoleSet accepts none.
var AnyRole = RoleSet{roleAny}

// Roles builds a RoleSet from the given roles.
func Roles(roles ...Role) RoleSet {
	return RoleSet(roles)
}

// Contains reports whether the set accepts the given role.
func (s RoleSet) Contains(r Role) bool {
	for _, member := range s {
		if member == roleAny {
			return r.Valid()
		}
		if member == r {
			return true
		}
	}
	return false
}
