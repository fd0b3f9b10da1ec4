// Package identity is the in-house identity provider: password accounts
// stored in MongoDB plus sign-in with assertions signed by a trusted
// federation partner. It holds the single principal of this process and
// reports every change to its listeners.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/ports"
	"github.com/talentflow/recruiting/internal/infrastructure/queue"
	"github.com/talentflow/recruiting/internal/metrics"
)

// Config holds the federation trust settings. An empty secret disables
// federated sign-in.
type Config struct {
	FederationSecret string
	FederationIssuer string
}

type resetter interface {
	Reset(ctx context.Context, key string) error
}

// LocalProvider implements ports.IdentityProvider.
type LocalProvider struct {
	accounts ports.AccountRepository
	limiter  ports.LoginLimiter
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	current *domain.Principal
	changes *queue.Broadcaster[*domain.Principal]
}

var (
	_ ports.IdentityProvider = (*LocalProvider)(nil)
	_ ports.AccountService   = (*LocalProvider)(nil)
)

// NewLocalProvider creates a provider with no signed-in principal. limiter
// may be nil.
func NewLocalProvider(accounts ports.AccountRepository, limiter ports.LoginLimiter, cfg Config, log zerolog.Logger) *LocalProvider {
	log = log.With().Str("component", "identity_provider").Logger()
	return &LocalProvider{
		accounts: accounts,
		limiter:  limiter,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		changes:  queue.NewBroadcaster[*domain.Principal](0, log),
	}
}

// SignUp creates a direct account and signs it in.
func (p *LocalProvider) SignUp(ctx context.Context, in ports.Registration) (*domain.Principal, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := p.now()
	account, err := p.accounts.Create(ctx, &domain.Account{
		ID:            p.newID(),
		Email:         email,
		PasswordHash:  string(hash),
		Channel:       domain.ChannelDirect,
		RequestedRole: in.RequestedRole,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			p.count(domain.ChannelDirect, "exists")
			return nil, err
		}
		p.count(domain.ChannelDirect, "error")
		return nil, fmt.Errorf("%w: create account: %w", domain.ErrUnknown, err)
	}

	p.log.Info().Str("principal_id", account.ID).Msg("account created")
	return p.signIn(account), nil
}

// Authenticate verifies a direct-channel password sign-in.
func (p *LocalProvider) Authenticate(ctx context.Context, creds ports.Credentials) (*domain.Principal, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		p.count(domain.ChannelDirect, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if p.limiter != nil {
		allowed, err := p.limiter.Allow(ctx, email)
		switch {
		case err != nil:
			p.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
		case !allowed:
			p.count(domain.ChannelDirect, "rate_limited")
			return nil, domain.ErrRateLimited
		}
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			p.count(domain.ChannelDirect, "invalid_credentials")
			return nil, err
		}
		p.count(domain.ChannelDirect, "error")
		return nil, fmt.Errorf("%w: find account: %w", domain.ErrUnknown, err)
	}

	if account.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)) != nil {
		p.count(domain.ChannelDirect, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if account.Disabled {
		p.count(domain.ChannelDirect, "disabled")
		return nil, domain.ErrAccountDisabled
	}

	if r, ok := p.limiter.(resetter); ok {
		if err := r.Reset(ctx, email); err != nil {
			p.log.Warn().Err(err).Msg("failed to reset login attempts")
		}
	}
	return p.signIn(account), nil
}

type federatedClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// SignInFederated verifies an HS256 assertion from the federation partner
// and signs in the matching account, creating it on first use. An assertion
// only ever signs in a federated account bound to the same subject; an email
// registered for direct sign-in is never linked.
func (p *LocalProvider) SignInFederated(ctx context.Context, assertion string) (*domain.Principal, error) {
	claims, err := p.verifyAssertion(assertion)
	if err != nil {
		p.count(domain.ChannelFederated, "invalid_assertion")
		return nil, err
	}

	account, err := p.accounts.FindByEmail(ctx, claims.Email)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		account, err = p.createFederated(ctx, claims)
		if err != nil {
			p.count(domain.ChannelFederated, "error")
			return nil, err
		}
	case err != nil:
		p.count(domain.ChannelFederated, "error")
		return nil, fmt.Errorf("%w: find account: %w", domain.ErrUnknown, err)
	case account.Channel != domain.ChannelFederated:
		p.count(domain.ChannelFederated, "exists")
		p.log.Warn().Str("principal_id", account.ID).Msg("federated assertion for a direct account rejected")
		return nil, fmt.Errorf("%w: email is registered for direct sign-in", domain.ErrAccountExists)
	case account.Subject != claims.Subject:
		p.count(domain.ChannelFederated, "invalid_assertion")
		p.log.Warn().Str("principal_id", account.ID).Msg("federated assertion subject mismatch")
		return nil, fmt.Errorf("%w: subject does not match account", domain.ErrInvalidAssertion)
	}

	if account.Disabled {
		p.count(domain.ChannelFederated, "disabled")
		return nil, domain.ErrAccountDisabled
	}
	return p.signIn(account), nil
}

func (p *LocalProvider) verifyAssertion(assertion string) (*federatedClaims, error) {
	if p.cfg.FederationSecret == "" {
		return nil, fmt.Errorf("%w: federated sign-in is not configured", domain.ErrInvalidAssertion)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.cfg.FederationIssuer != "" {
		opts = append(opts, jwt.WithIssuer(p.cfg.FederationIssuer))
	}

	claims := &federatedClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims, func(*jwt.Token) (any, error) {
		return []byte(p.cfg.FederationSecret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidAssertion, err)
	}

	claims.Email = normalizeEmail(claims.Email)
	if claims.Email == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing email or subject", domain.ErrInvalidAssertion)
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", domain.ErrInvalidAssertion)
	}
	return claims, nil
}

func (p *LocalProvider) createFederated(ctx context.Context, claims *federatedClaims) (*domain.Account, error) {
	now := p.now()
	account, err := p.accounts.Create(ctx, &domain.Account{
		ID:            p.newID(),
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Channel:       domain.ChannelFederated,
		Subject:       claims.Subject,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create federated account: %w", domain.ErrUnknown, err)
	}
	p.log.Info().Str("principal_id", account.ID).Msg("federated account created")
	return account, nil
}

// SubscribeToAuthChanges registers cb and immediately delivers the current
// principal (nil when signed out) to it.
func (p *LocalProvider) SubscribeToAuthChanges(cb func(*domain.Principal)) ports.Unsubscribe {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changes.SubscribeFrom(clonePrincipal(p.current), cb)
}

// SignOut clears the principal and notifies listeners with nil.
func (p *LocalProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.log.Info().Str("principal_id", p.current.ID).Msg("signed out")
	}
	p.current = nil
	p.changes.Publish(nil)
	return nil
}

// Close detaches every listener.
func (p *LocalProvider) Close() {
	p.changes.Close()
}

func (p *LocalProvider) signIn(account *domain.Account) *domain.Principal {
	principal := account.Principal()
	p.count(principal.Channel, "ok")

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = principal
	p.changes.Publish(clonePrincipal(principal))
	p.log.Info().Str("principal_id", principal.ID).Str("channel", string(principal.Channel)).Msg("signed in")
	return clonePrincipal(principal)
}

func (p *LocalProvider) count(ch domain.Channel, result string) {
	metrics.SignInsTotal.WithLabelValues(string(ch), result).Inc()
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
