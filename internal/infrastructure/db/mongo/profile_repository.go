package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/ports"
)

const collectionProfiles = "profiles"

// ProfileRepository stores one profile document per principal, keyed by
// principal_id.
type ProfileRepository struct {
	col *mongo.Collection
	now func() time.Time
}

var _ ports.ProfileStore = (*ProfileRepository)(nil)

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		col: db.Collection(collectionProfiles),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type profileDocument struct {
	PrincipalID string    `bson:"principal_id"`
	Role        string    `bson:"role"`
	IsActive    bool      `bson:"is_active"`
	DisplayName string    `bson:"display_name,omitempty"`
	Company     string    `bson:"company,omitempty"`
	Phone       string    `bson:"phone,omitempty"`
	PhotoURL    string    `bson:"photo_url,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	LastLoginAt time.Time `bson:"last_login_at,omitempty"`
}

func (d profileDocument) toDomain() *domain.Profile {
	return &domain.Profile{
		PrincipalID: d.PrincipalID,
		Role:        domain.Role(d.Role),
		IsActive:    d.IsActive,
		DisplayName: d.DisplayName,
		Company:     d.Company,
		Phone:       d.Phone,
		PhotoURL:    d.PhotoURL,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		LastLoginAt: d.LastLoginAt.UTC(),
	}
}

// GetProfile returns the stored profile, or nil when the principal has none.
func (r *ProfileRepository) GetProfile(ctx context.Context, principalID string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc profileDocument
	err := r.col.FindOne(ctx, bson.M{"principal_id": principalID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, mapError("get profile", err)
	}
	return doc.toDomain(), nil
}

// UpsertProfile merges patch into the principal's document. Only a patch
// carrying a role may create the document; role and activation are only ever
// written on insert so that an existing role is never overwritten.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, principalID string, patch domain.ProfilePatch) error {
	set, setOnInsert, err := upsertDocuments(patch, r.now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": set}
	opts := options.Update()
	if setOnInsert != nil {
		update["$setOnInsert"] = setOnInsert
		opts.SetUpsert(true)
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"principal_id": principalID}, update, opts)
	if err != nil {
		return mapError("upsert profile", err)
	}
	if setOnInsert == nil && res.MatchedCount == 0 {
		return fmt.Errorf("upsert profile: %w", domain.ErrProfileNotFound)
	}
	return nil
}

// upsertDocuments splits a patch into its $set and $setOnInsert parts. The two
// never share a field. setOnInsert is nil for a role-less patch, which must
// only update an existing document.
func upsertDocuments(patch domain.ProfilePatch, now time.Time) (set, setOnInsert bson.M, err error) {
	set = bson.M{"updated_at": now}
	if patch.DisplayName != nil {
		set["display_name"] = *patch.DisplayName
	}
	if patch.Company != nil {
		set["company"] = *patch.Company
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.PhotoURL != nil {
		set["photo_url"] = *patch.PhotoURL
	}
	if patch.LastLoginAt != nil {
		set["last_login_at"] = patch.LastLoginAt.UTC()
	}

	if patch.Role == nil {
		return set, nil, nil
	}
	if !patch.Role.Valid() {
		return nil, nil, fmt.Errorf("%w: cannot insert profile with role %q", domain.ErrInvalidProfile, *patch.Role)
	}
	active := true
	if patch.IsActive != nil {
		active = *patch.IsActive
	}
	setOnInsert = bson.M{
		"role":       string(*patch.Role),
		"is_active":  active,
		"created_at": now,
	}
	return set, setOnInsert, nil
}

// EnsureIndexes creates the unique principal index on the profiles collection.
func (r *ProfileRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "principal_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})
	return err
}
