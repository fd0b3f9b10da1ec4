package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/talentflow/recruiting/internal/core/domain"
)

func TestUpsertDocuments_RoleOnlyOnInsert(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	role := domain.RoleRecruiter
	active := true
	name := "Sam"
	patch := domain.ProfilePatch{Role: &role, IsActive: &active, DisplayName: &name}

	set, onInsert, err := upsertDocuments(patch, now)
	if err != nil {
		t.Fatalf("upsertDocuments: %v", err)
	}

	if _, ok := set["role"]; ok {
		t.Fatalf("role must never be part of $set")
	}
	if _, ok := set["is_active"]; ok {
		t.Fatalf("is_active must never be part of $set")
	}
	if onInsert["role"] != "recruiter" || onInsert["is_active"] != true {
		t.Fatalf("unexpected $setOnInsert: %v", onInsert)
	}
	if set["display_name"] != "Sam" || set["updated_at"] != now {
		t.Fatalf("unexpected $set: %v", set)
	}
	for k := range set {
		if _, dup := onInsert[k]; dup {
			t.Fatalf("field %q appears in both $set and $setOnInsert", k)
		}
	}
}

func TestUpsertDocuments_RolelessPatchOnlyUpdates(t *testing.T) {
	login := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("CST", -6*3600))
	name := "Ann"
	set, onInsert, err := upsertDocuments(domain.ProfilePatch{DisplayName: &name, LastLoginAt: &login}, login)
	if err != nil {
		t.Fatalf("upsertDocuments: %v", err)
	}
	if onInsert != nil {
		t.Fatalf("a role-less patch must never insert, got $setOnInsert %v", onInsert)
	}
	if set["display_name"] != "Ann" || set["last_login_at"] != login.UTC() {
		t.Fatalf("unexpected $set: %v", set)
	}
}

func TestUpsertDocuments_RejectsUnknownRole(t *testing.T) {
	role := domain.Role("owner")
	_, _, err := upsertDocuments(domain.ProfilePatch{Role: &role}, time.Now())
	if !errors.Is(err, domain.ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, domain.ErrStoreUnavailable},
		{"disconnected", mongo.ErrClientDisconnected, domain.ErrStoreUnavailable},
		{"duplicate", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, domain.ErrStoreConflict},
		{"other", errors.New("bad document"), domain.ErrUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapError("op", tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("mapError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
	if mapError("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
