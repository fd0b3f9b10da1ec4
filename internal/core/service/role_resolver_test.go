package service

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/talentflow/recruiting/internal/core/domain"
)

const testSuperAdmin = "founder@org.com"

func newTestResolver() *RoleResolver {
	return NewRoleResolver(testSuperAdmin, []string{"org.com", "@Talent.org.com "})
}

func TestRoleResolver_ResolveRole(t *testing.T) {
	r := newTestResolver()

	cases := []struct {
		name      string
		email     string
		channel   domain.Channel
		requested domain.Role
		want      domain.Role
	}{
		{"org domain defaults to recruiter", "admin@org.com", domain.ChannelDirect, "", domain.RoleRecruiter},
		{"org domain honours admin request", "admin@org.com", domain.ChannelDirect, domain.RoleAdmin, domain.RoleAdmin},
		{"org domain honours recruiter request", "sam@org.com", domain.ChannelDirect, domain.RoleRecruiter, domain.RoleRecruiter},
		{"org domain ignores client request", "sam@org.com", domain.ChannelDirect, domain.RoleClient, domain.RoleRecruiter},
		{"org domain ignores super_admin request", "sam@org.com", domain.ChannelDirect, domain.RoleSuperAdmin, domain.RoleRecruiter},
		{"org domain is case-insensitive", "Sam@ORG.com", domain.ChannelDirect, domain.RoleAdmin, domain.RoleAdmin},
		{"configured domain with prefix", "kim@talent.org.com", domain.ChannelDirect, "", domain.RoleRecruiter},
		{"outside domain is client", "jane@gmail.com", domain.ChannelDirect, domain.RoleAdmin, domain.RoleClient},
		{"look-alike domain is client", "jane@org.com.evil.io", domain.ChannelDirect, domain.RoleAdmin, domain.RoleClient},
		{"federated escalation attempt", "jane@gmail.com", domain.ChannelFederated, domain.RoleAdmin, domain.RoleClient},
		{"federated org domain is client", "sam@org.com", domain.ChannelFederated, domain.RoleRecruiter, domain.RoleClient},
		{"super admin direct", testSuperAdmin, domain.ChannelDirect, "", domain.RoleSuperAdmin},
		{"super admin mixed case federated", "  FOUNDER@Org.Com ", domain.ChannelFederated, domain.RoleClient, domain.RoleSuperAdmin},
		{"missing at sign", "not-an-email", domain.ChannelDirect, domain.RoleAdmin, domain.RoleCandidate},
		{"two at signs", "a@b@org.com", domain.ChannelDirect, "", domain.RoleCandidate},
		{"empty local part", "@org.com", domain.ChannelDirect, "", domain.RoleCandidate},
		{"empty domain", "sam@", domain.ChannelFederated, "", domain.RoleCandidate},
		{"empty email", "", domain.ChannelDirect, "", domain.RoleCandidate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.ResolveRole(tc.email, tc.channel, tc.requested); got != tc.want {
				t.Fatalf("ResolveRole(%q, %s, %q) = %s, want %s", tc.email, tc.channel, tc.requested, got, tc.want)
			}
		})
	}
}

func TestRoleResolver_ValidateRoleAssignment(t *testing.T) {
	r := newTestResolver()

	cases := []struct {
		name    string
		email   string
		role    domain.Role
		channel domain.Channel
		want    []string
	}{
		{"org recruiter is fine", "sam@org.com", domain.RoleRecruiter, domain.ChannelDirect, nil},
		{"client anywhere is fine", "jane@gmail.com", domain.RoleClient, domain.ChannelFederated, nil},
		{"super admin is fine", testSuperAdmin, domain.RoleSuperAdmin, domain.ChannelDirect, nil},
		{"admin needs org domain", "jane@gmail.com", domain.RoleAdmin, domain.ChannelDirect, []string{"organization email domain"}},
		{"federated elevation", "jane@gmail.com", domain.RoleAdmin, domain.ChannelFederated, []string{"organization email domain", "federated sign-in"}},
		{"federated org recruiter", "sam@org.com", domain.RoleRecruiter, domain.ChannelFederated, []string{"federated sign-in"}},
		{"super admin needs address", "sam@org.com", domain.RoleSuperAdmin, domain.ChannelDirect, []string{"designated super-admin address"}},
		{"address must be super admin", testSuperAdmin, domain.RoleClient, domain.ChannelDirect, []string{"must hold the super_admin role"}},
		{"unknown role", "sam@org.com", domain.Role("owner"), domain.ChannelDirect, []string{"unknown role"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.ValidateRoleAssignment(tc.email, tc.role, tc.channel)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d violations, got %d: %v", len(tc.want), len(got), got)
			}
			for i, fragment := range tc.want {
				if !strings.Contains(got[i], fragment) {
					t.Fatalf("violation %d = %q, want it to mention %q", i, got[i], fragment)
				}
			}
		})
	}
}

func TestRoleResolver_ResolvedRolesPassValidation(t *testing.T) {
	r := newTestResolver()
	emails := []string{"sam@org.com", "jane@gmail.com", testSuperAdmin}
	channels := []domain.Channel{domain.ChannelDirect, domain.ChannelFederated}

	for _, email := range emails {
		for _, ch := range channels {
			for _, requested := range append([]domain.Role{""}, domain.Roles...) {
				role := r.ResolveRole(email, ch, requested)
				if v := r.ValidateRoleAssignment(email, role, ch); len(v) != 0 {
					t.Fatalf("ResolveRole(%q, %s, %q) = %s breaks rules: %v", email, ch, requested, role, v)
				}
			}
		}
	}
}

func genRole() gopter.Gen {
	return gen.OneConstOf(
		domain.Role(""), domain.RoleSuperAdmin, domain.RoleAdmin,
		domain.RoleRecruiter, domain.RoleClient, domain.RoleCandidate,
	)
}

func genChannel() gopter.Gen {
	return gen.OneConstOf(domain.ChannelDirect, domain.ChannelFederated, domain.Channel(""))
}

func genCase() gopter.Gen {
	return gen.OneConstOf(
		func(s string) string { return s },
		strings.ToUpper,
		strings.ToLower,
		func(s string) string { return " " + s + "\t" },
	)
}

func TestRoleResolver_Properties(t *testing.T) {
	r := newTestResolver()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("super-admin address always resolves to super_admin", prop.ForAll(
		func(transform func(string) string, ch domain.Channel, requested domain.Role) bool {
			return r.ResolveRole(transform(testSuperAdmin), ch, requested) == domain.RoleSuperAdmin
		},
		genCase(), genChannel(), genRole(),
	))

	properties.Property("federated channel never yields an elevated role for ordinary addresses", prop.ForAll(
		func(local, host string, requested domain.Role) bool {
			role := r.ResolveRole(local+"@"+host, domain.ChannelFederated, requested)
			return !role.Elevated()
		},
		gen.AlphaString(), gen.OneConstOf("org.com", "gmail.com", "talent.org.com", "example.io"), genRole(),
	))

	properties.Property("outside domains resolve to client on the direct channel", prop.ForAll(
		func(local string, requested domain.Role) bool {
			if local == "" {
				return true
			}
			return r.ResolveRole(local+"@outside.example", domain.ChannelDirect, requested) == domain.RoleClient
		},
		gen.AlphaString(), genRole(),
	))

	properties.Property("resolution is total and returns a known role", prop.ForAll(
		func(email string, ch domain.Channel, requested domain.Role) bool {
			return r.ResolveRole(email, ch, requested).Valid()
		},
		gen.AnyString(), genChannel(), genRole(),
	))

	properties.TestingRun(t)
}
