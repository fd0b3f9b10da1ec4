package domain

import "time"

// Principal is the identity provider's record of an authenticated account.
// The session core only ever receives principals, it never builds them.
type Principal struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"email_verified"`
	Channel       Channel `json:"channel"`
	// RequestedRole is the role asked for at signup, if any. It is only a
	// hint for role resolution.
	RequestedRole Role `json:"requested_role,omitempty"`
}

// Account is the local identity provider's persisted user record.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	EmailVerified bool
	Channel       Channel
	RequestedRole Role
	// Subject is the federated provider's subject, empty for direct accounts.
	Subject   string
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal projects the account into the identity fact handed to listeners.
func (a *Account) Principal() *Principal {
	return &Principal{
		ID:            a.ID,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Channel:       a.Channel,
		RequestedRole: a.RequestedRole,
	}
}
