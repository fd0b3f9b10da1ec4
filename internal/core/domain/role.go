package domain

import "fmt"

// Role is the capability level attached to a Profile.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleRecruiter  Role = "recruiter"
	RoleClient     Role = "client"
	RoleCandidate  Role = "candidate"
)

// Roles lists every role, most privileged first.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleRecruiter, RoleClient, RoleCandidate}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleRecruiter, RoleClient, RoleCandidate:
		return true
	}
	return false
}

// Elevated reports whether r belongs to the organization staff.
func (r Role) Elevated() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleRecruiter:
		return true
	case RoleClient, RoleCandidate:
		return false
	}
	return false
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Permission is a named capability granted through a Role.
type Permission string

const (
	PermManageUsers      Permission = "manage_users"
	PermManageSettings   Permission = "manage_settings"
	PermViewAnalytics    Permission = "view_analytics"
	PermManageJobs       Permission = "manage_jobs"
	PermViewCandidates   Permission = "view_candidates"
	PermManageCandidates Permission = "manage_candidates"
	PermCreateProposals  Permission = "create_proposals"
	PermViewProposals    Permission = "view_proposals"
	PermUseChat          Permission = "use_chat"
	PermManageOwnProfile Permission = "manage_own_profile"
	PermApplyJobs        Permission = "apply_jobs"
	PermUploadCV         Permission = "upload_cv"
)

// AllPermissions is the full permission catalogue.
var AllPermissions = []Permission{
	PermManageUsers,
	PermManageSettings,
	PermViewAnalytics,
	PermManageJobs,
	PermViewCandidates,
	PermManageCandidates,
	PermCreateProposals,
	PermViewProposals,
	PermUseChat,
	PermManageOwnProfile,
	PermApplyJobs,
	PermUploadCV,
}

// Permissions returns the permissions granted to r. super_admin receives the
// whole catalogue; unknown roles receive nothing.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleSuperAdmin:
		return append([]Permission(nil), AllPermissions...)
	case RoleAdmin:
		return []Permission{
			PermManageUsers, PermManageSettings, PermViewAnalytics, PermManageJobs,
			PermViewCandidates, PermManageCandidates, PermCreateProposals,
			PermViewProposals, PermUseChat, PermManageOwnProfile,
		}
	case RoleRecruiter:
		return []Permission{
			PermViewAnalytics, PermManageJobs, PermViewCandidates, PermManageCandidates,
			PermCreateProposals, PermViewProposals, PermUseChat, PermManageOwnProfile,
		}
	case RoleClient:
		return []Permission{
			PermViewCandidates, PermViewProposals, PermUseChat, PermManageOwnProfile,
		}
	case RoleCandidate:
		return []Permission{
			PermApplyJobs, PermUploadCV, PermUseChat, PermManageOwnProfile,
		}
	}
	return nil
}

// Can reports whether r grants p.
func (r Role) Can(p Permission) bool {
	if r == RoleSuperAdmin {
		return true
	}
	for _, granted := range r.Permissions() {
		if granted == p {
			return true
		}
	}
	return false
}

// Channel is the pathway through which an account was created.
type Channel string

const (
	ChannelDirect    Channel = "direct"
	ChannelFederated Channel = "federated"
)
