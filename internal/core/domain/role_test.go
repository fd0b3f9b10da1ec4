package domain

import "testing"

func TestRole_Permissions(t *testing.T) {
	cases := []struct {
		role  Role
		has   []Permission
		lacks []Permission
	}{
		{RoleAdmin, []Permission{PermManageUsers, PermManageSettings, PermViewAnalytics}, []Permission{PermApplyJobs, PermUploadCV}},
		{RoleRecruiter, []Permission{PermManageJobs, PermManageCandidates, PermCreateProposals}, []Permission{PermManageUsers, PermManageSettings}},
		{RoleClient, []Permission{PermViewCandidates, PermViewProposals, PermUseChat}, []Permission{PermManageJobs, PermCreateProposals}},
		{RoleCandidate, []Permission{PermApplyJobs, PermUploadCV, PermManageOwnProfile}, []Permission{PermViewCandidates, PermManageUsers}},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			for _, p := range tc.has {
				if !tc.role.Can(p) {
					t.Fatalf("%s should hold %s", tc.role, p)
				}
			}
			for _, p := range tc.lacks {
				if tc.role.Can(p) {
					t.Fatalf("%s should not hold %s", tc.role, p)
				}
			}
		})
	}
}

func TestRole_SuperAdminHoldsEverything(t *testing.T) {
	perms := RoleSuperAdmin.Permissions()
	if len(perms) != len(AllPermissions) {
		t.Fatalf("expected %d permissions, got %d", len(AllPermissions), len(perms))
	}
	perms[0] = "tampered"
	if AllPermissions[0] == "tampered" {
		t.Fatalf("Permissions must return a copy of the catalogue")
	}
	if !RoleSuperAdmin.Can(Permission("not_in_catalogue")) {
		t.Fatalf("super_admin is a wildcard")
	}
}

func TestRole_EveryPermissionIsCatalogued(t *testing.T) {
	known := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		known[p] = true
	}
	for _, r := range Roles {
		for _, p := range r.Permissions() {
			if !known[p] {
				t.Fatalf("%s grants uncatalogued permission %s", r, p)
			}
		}
	}
}

func TestRole_Unknown(t *testing.T) {
	r := Role("owner")
	if r.Valid() || r.Elevated() || r.Permissions() != nil || r.Can(PermUseChat) {
		t.Fatalf("unknown role must grant nothing")
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if got, err := ParseRole("recruiter"); err != nil || got != RoleRecruiter {
		t.Fatalf("ParseRole(recruiter) = %q, %v", got, err)
	}
}
