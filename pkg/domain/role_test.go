package domain

import "testing"

func TestRoleSetContains(t *testing.T) {
	tests := []struct {
		name string
		set  RoleSet
		role Role
		want bool
	}{
		{"member", Roles(RoleAdmin, RoleDoctor), RoleDoctor, true},
		{"non-member", Roles(RoleAdmin), RolePatient, false},
		{"empty set accepts none", Roles(), RoleAdmin, false},
		{"any role accepts admin", AnyRole, RoleAdmin, true},
		{"any role accepts patient", AnyRole, RolePatient, true},
		{"any role rejects invalid", AnyRole, Role("superuser"), false},
		{"wildcard is not a member", Roles(RoleAdmin), roleAny, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Contains(tt.role); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RolePharmacist, RolePatient} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []Role{roleAny, Role(""), Role("nurse")} {
		if r.Valid() {
			t.Errorf("%q should not be valid", r)
		}
	}
}
