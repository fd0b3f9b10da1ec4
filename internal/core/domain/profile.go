package domain

import "time"

// Profile is the application-owned record holding a principal's role.
type Profile struct {
	PrincipalID string    `json:"principal_id"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	DisplayName string    `json:"display_name,omitempty"`
	Company     string    `json:"company,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// NewProfile builds the default profile created on first sign-in.
func NewProfile(principalID string, role Role, now time.Time) *Profile {
	return &Profile{
		PrincipalID: principalID,
		Role:        role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
}

// Clone returns a deep copy so published snapshots are never mutated.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// ProfilePatch is the partial document written by UpsertProfile. Nil fields
// are left untouched. Only a patch carrying Role may create a profile; Role
// and IsActive only take effect when the profile is first inserted.
type ProfilePatch struct {
	Role        *Role
	IsActive    *bool
	DisplayName *string
	Company     *string
	Phone       *string
	PhotoURL    *string
	LastLoginAt *time.Time
}

// PatchFromProfile returns the patch that creates p from scratch.
func PatchFromProfile(p *Profile) ProfilePatch {
	role := p.Role
	active := p.IsActive
	lastLogin := p.LastLoginAt
	patch := ProfilePatch{
		Role:        &role,
		IsActive:    &active,
		LastLoginAt: &lastLogin,
	}
	if p.DisplayName != "" {
		patch.DisplayName = &p.DisplayName
	}
	if p.Company != "" {
		patch.Company = &p.Company
	}
	if p.Phone != "" {
		patch.Phone = &p.Phone
	}
	if p.PhotoURL != "" {
		patch.PhotoURL = &p.PhotoURL
	}
	return patch
}

// ProfileUpdate is the user-editable subset of a Profile.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=120"`
	Company     *string `json:"company,omitempty" validate:"omitempty,max=120"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,e164"`
	PhotoURL    *string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

// Empty reports whether the update carries no field.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.Company == nil && u.Phone == nil && u.PhotoURL == nil
}

// Patch converts the update into a store patch.
func (u ProfileUpdate) Patch() ProfilePatch {
	return ProfilePatch{
		DisplayName: u.DisplayName,
		Company:     u.Company,
		Phone:       u.Phone,
		PhotoURL:    u.PhotoURL,
	}
}

// Apply returns a copy of p with the update applied.
func (u ProfileUpdate) Apply(p *Profile, now time.Time) *Profile {
	next := p.Clone()
	if u.DisplayName != nil {
		next.DisplayName = *u.DisplayName
	}
	if u.Company != nil {
		next.Company = *u.Company
	}
	if u.Phone != nil {
		next.Phone = *u.Phone
	}
	if u.PhotoURL != nil {
		next.PhotoURL = *u.PhotoURL
	}
	next.UpdatedAt = now
	return next
}
