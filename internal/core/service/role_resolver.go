package service

import (
	"fmt"
	"strings"

	"github.com/talentflow/recruiting/internal/core/domain"
)

// RoleResolver derives a role from an email address and the signup channel.
// It performs no I/O and never fails.
type RoleResolver struct {
	superAdminEmail string
	orgDomains      map[string]struct{}
}

// NewRoleResolver builds a resolver for the given distinguished super-admin
// address and organization domains. Both are compared case-insensitively.
func NewRoleResolver(superAdminEmail string, orgDomains []string) *RoleResolver {
	domains := make(map[string]struct{}, len(orgDomains))
	for _, d := range orgDomains {
		d = normalize(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains[d] = struct{}{}
		}
	}
	return &RoleResolver{
		superAdminEmail: normalize(superAdminEmail),
		orgDomains:      domains,
	}
}

// ResolveRole applies, in order:
//  1. the super-admin address always maps to super_admin;
//  2. a malformed address maps to candidate;
//  3. the federated channel maps to client;
//  4. an organization domain maps to the requested admin/recruiter role,
//     recruiter otherwise;
//  5. anything else maps to client.
func (r *RoleResolver) ResolveRole(email string, channel domain.Channel, requested domain.Role) domain.Role {
	if r.IsSuperAdmin(email) {
		return domain.RoleSuperAdmin
	}
	emailDomain, ok := domainOf(email)
	if !ok {
		return domain.RoleCandidate
	}
	if channel == domain.ChannelFederated {
		return domain.RoleClient
	}
	if r.isOrgDomain(emailDomain) {
		switch requested {
		case domain.RoleAdmin, domain.RoleRecruiter:
			return requested
		}
		return domain.RoleRecruiter
	}
	return domain.RoleClient
}

// ValidateRoleAssignment lists the rules role would break if stored for
// email. An empty result means the assignment is consistent.
func (r *RoleResolver) ValidateRoleAssignment(email string, role domain.Role, channel domain.Channel) []string {
	var violations []string

	if !role.Valid() {
		return append(violations, fmt.Sprintf("unknown role %q", role))
	}

	superAdmin := r.IsSuperAdmin(email)
	emailDomain, wellFormed := domainOf(email)

	if role == domain.RoleSuperAdmin && !superAdmin {
		violations = append(violations, "super_admin role requires the designated super-admin address")
	}
	if superAdmin && role != domain.RoleSuperAdmin {
		violations = append(violations, "the designated super-admin address must hold the super_admin role")
	}
	if role == domain.RoleAdmin || role == domain.RoleRecruiter {
		if !wellFormed || !r.isOrgDomain(emailDomain) {
			violations = append(violations, fmt.Sprintf("%s role requires an organization email domain", role))
		}
	}
	if channel == domain.ChannelFederated && role.Elevated() && !superAdmin {
		violations = append(violations, fmt.Sprintf("federated sign-in cannot hold the elevated %s role", role))
	}
	return violations
}

// IsSuperAdmin reports whether email is the distinguished super-admin address.
func (r *RoleResolver) IsSuperAdmin(email string) bool {
	return r.superAdminEmail != "" && normalize(email) == r.superAdminEmail
}

func (r *RoleResolver) isOrgDomain(d string) bool {
	_, ok := r.orgDomains[d]
	return ok
}

// domainOf returns the lower-cased domain of a well-formed address: exactly
// one '@' with a non-empty local part and domain.
func domainOf(email string) (string, bool) {
	email = normalize(email)
	if strings.Count(email, "@") != 1 {
		return "", false
	}
	local, d, _ := strings.Cut(email, "@")
	if local == "" || d == "" {
		return "", false
	}
	return d, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
