package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/ports"
	"github.com/talentflow/recruiting/internal/metrics"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultRetryBackoff = 200 * time.Millisecond
	eventBuffer         = 64
	defaultNotifyBuffer = 256
)

// SessionManagerConfig bounds the profile store calls made while reconciling.
type SessionManagerConfig struct {
	// Timeout bounds every single profile store call.
	Timeout time.Duration
	// Retries is the number of extra attempts after an unavailable store.
	Retries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// NotifyBuffer is the number of snapshots queued for OnSessionChange
	// callbacks before the oldest is dropped.
	NotifyBuffer int
}

type snapshot struct {
	session    domain.Session
	generation uint64
}

type reconcileResult struct {
	generation uint64
	session    domain.Session
	outcome    string
	started    time.Time
}

type applyRequest struct {
	generation uint64
	profile    *domain.Profile
	err        error
	reply      chan bool
}

type subscriber struct {
	id uint64
	cb func(domain.Session)
}

// SessionManager owns the process session. It is the only writer of session
// state: identity provider events, reconciliation results, sign-outs and
// profile changes are all applied by a single loop goroutine, and readers
// get the last published snapshot.
type SessionManager struct {
	idp      ports.IdentityProvider
	store    ports.ProfileStore
	resolver *RoleResolver
	validate *validator.Validate
	cfg      SessionManagerConfig
	log      zerolog.Logger
	now      func() time.Time

	events   chan *domain.Principal
	results  chan reconcileResult
	signOuts chan chan struct{}
	applies  chan applyRequest
	notify   chan domain.Session
	done     chan struct{}
	started  atomic.Bool

	current atomic.Pointer[snapshot]
	// generation is owned by the loop goroutine.
	generation uint64

	mu          sync.Mutex
	subscribers []subscriber
	nextSubID   uint64
}

var _ ports.SessionService = (*SessionManager)(nil)

// NewSessionManager builds a manager in the pending state. Call Start once
// to subscribe to the identity provider.
func NewSessionManager(
	idp ports.IdentityProvider,
	store ports.ProfileStore,
	resolver *RoleResolver,
	cfg SessionManagerConfig,
	log zerolog.Logger,
) *SessionManager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStoreTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.NotifyBuffer <= 0 {
		cfg.NotifyBuffer = defaultNotifyBuffer
	}
	m := &SessionManager{
		idp:      idp,
		store:    store,
		resolver: resolver,
		validate: validator.New(),
		cfg:      cfg,
		log:      log.With().Str("component", "session_manager").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
		events:   make(chan *domain.Principal, eventBuffer),
		results:  make(chan reconcileResult),
		signOuts: make(chan chan struct{}),
		applies:  make(chan applyRequest),
		notify:   make(chan domain.Session, cfg.NotifyBuffer),
		done:     make(chan struct{}),
	}
	m.current.Store(&snapshot{session: domain.PendingSession()})
	return m
}

// Start subscribes to the identity provider and launches the session loop.
// The loop stops and the subscription is released when ctx is cancelled.
// Only the first call has any effect.
func (m *SessionManager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	unsubscribe := m.idp.SubscribeToAuthChanges(m.onAuthChange)
	go m.runNotifier()
	go m.run(ctx, unsubscribe)
}

// Done is closed once the session loop has stopped.
func (m *SessionManager) Done() <-chan struct{} {
	return m.done
}

// GetSession returns the current snapshot.
func (m *SessionManager) GetSession() domain.Session {
	return m.current.Load().session
}

// OnSessionChange registers cb for published snapshots. Callbacks run in
// publish order on a dedicated goroutine. When callbacks fall behind, older
// queued snapshots are skipped; the latest one is always delivered.
func (m *SessionManager) OnSessionChange(cb func(domain.Session)) ports.Unsubscribe {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscriber{id: id, cb: cb})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subscribers {
				if s.id == id {
					m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// SignOut clears the session immediately, then asks the identity provider to
// sign out in the background. A slow or failing remote sign-out never keeps
// the session authenticated.
func (m *SessionManager) SignOut() {
	if !m.signOutInLoop() {
		prev := m.current.Load()
		m.current.Store(&snapshot{session: domain.SignedOutSession(), generation: prev.generation + 1})
	}
	go m.remoteSignOut()
}

// signOutInLoop hands the sign-out to the running loop. It reports false when
// the loop was never started or has already stopped.
func (m *SessionManager) signOutInLoop() bool {
	if !m.started.Load() {
		return false
	}
	reply := make(chan struct{})
	select {
	case m.signOuts <- reply:
		<-reply
		return true
	case <-m.done:
		return false
	}
}

// UpdateProfile persists user-editable profile fields and publishes the
// result. It fails with domain.ErrNoActiveSession unless the session is
// authenticated.
func (m *SessionManager) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	snap := m.current.Load()
	if !snap.session.Authenticated() {
		return domain.ErrNoActiveSession
	}
	if update.Empty() {
		return fmt.Errorf("%w: nothing to update", domain.ErrInvalidProfile)
	}
	if err := m.validate.Struct(update); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidProfile, err)
	}

	p := snap.session.Principal
	patch := update.Patch()
	// A degraded session may run on a profile that was never stored; the
	// write must then insert the role first resolution assigns.
	degraded := snap.session.Error != nil
	if degraded {
		role := m.resolver.ResolveRole(p.Email, p.Channel, p.RequestedRole)
		active := true
		patch.Role, patch.IsActive = &role, &active
	}
	if err := m.upsertProfile(ctx, p.ID, patch); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	next, sessionErr := update.Apply(snap.session.Profile, m.now()), snap.session.Error
	if degraded {
		if stored, err := m.getProfile(ctx, p.ID); err == nil && stored != nil {
			next, sessionErr = update.Apply(stored, m.now()), nil
		}
	}
	if !m.apply(applyRequest{generation: snap.generation, profile: next, err: sessionErr}) {
		m.log.Debug().Str("principal_id", p.ID).Msg("session moved on, profile update not published")
	}
	return nil
}

// RefreshProfile re-reads the profile of the current principal. On failure
// the session is left untouched and the error is returned. It returns nil
// when there is no principal or the store has no profile for it.
func (m *SessionManager) RefreshProfile(ctx context.Context) (*domain.Profile, error) {
	snap := m.current.Load()
	if snap.session.Principal == nil {
		return nil, nil
	}
	principalID := snap.session.Principal.ID

	profile, err := m.getProfile(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("refresh profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}
	if !m.apply(applyRequest{generation: snap.generation, profile: profile.Clone()}) {
		m.log.Debug().Str("principal_id", principalID).Msg("session moved on, refreshed profile not published")
	}
	return profile, nil
}

// HasPermission reports whether the current session holds p.
func (m *SessionManager) HasPermission(p domain.Permission) bool {
	return m.GetSession().Can(p)
}

// Permissions lists the permissions of the current session.
func (m *SessionManager) Permissions() []domain.Permission {
	return m.GetSession().Permissions()
}

// HasRole reports whether the current session is authenticated with one of
// roles. super_admin matches any role.
func (m *SessionManager) HasRole(roles ...domain.Role) bool {
	s := m.GetSession()
	if !s.Authenticated() {
		return false
	}
	if s.Role() == domain.RoleSuperAdmin {
		return true
	}
	for _, r := range roles {
		if s.Role() == r {
			return true
		}
	}
	return false
}

// onAuthChange is the identity provider callback. It only enqueues.
func (m *SessionManager) onAuthChange(p *domain.Principal) {
	if p != nil {
		cp := *p
		p = &cp
	}
	select {
	case m.events <- p:
	case <-m.done:
	}
}

func (m *SessionManager) run(ctx context.Context, unsubscribe ports.Unsubscribe) {
	defer close(m.done)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-m.events:
			m.handlePrincipal(ctx, p)
		case res := <-m.results:
			m.handleResult(res)
		case reply := <-m.signOuts:
			m.generation++
			m.publish(domain.SignedOutSession())
			close(reply)
		case req := <-m.applies:
			req.reply <- m.handleApply(req)
		}
	}
}

func (m *SessionManager) handlePrincipal(ctx context.Context, p *domain.Principal) {
	m.generation++
	if p == nil {
		m.publish(domain.SignedOutSession())
		return
	}
	go m.reconcile(ctx, m.generation, p)
}

func (m *SessionManager) handleResult(res reconcileResult) {
	metrics.ReconciliationDuration.Observe(time.Since(res.started).Seconds())
	if res.generation != m.generation {
		metrics.ReconciliationsTotal.WithLabelValues("stale").Inc()
		m.log.Debug().
			Uint64("generation", res.generation).
			Uint64("current", m.generation).
			Msg("stale reconciliation discarded")
		return
	}
	metrics.ReconciliationsTotal.WithLabelValues(res.outcome).Inc()
	m.publish(res.session)
}

func (m *SessionManager) handleApply(req applyRequest) bool {
	if req.generation != m.generation {
		return false
	}
	cur := m.current.Load().session
	if cur.Principal == nil {
		return false
	}
	m.publish(domain.NewSession(cur.Principal, req.profile, req.err))
	return true
}

// publish must only be called from the loop goroutine. It never blocks: when
// the notifier lags, the oldest queued snapshot is dropped.
func (m *SessionManager) publish(s domain.Session) {
	m.current.Store(&snapshot{session: s, generation: m.generation})
	metrics.SessionPublishedTotal.WithLabelValues(string(s.Status)).Inc()

	evt := m.log.Info().Str("status", string(s.Status)).Uint64("generation", m.generation)
	if s.Principal != nil {
		evt = evt.Str("principal_id", s.Principal.ID)
	}
	if s.Profile != nil {
		evt = evt.Str("role", string(s.Profile.Role))
	}
	if s.Error != nil {
		evt = evt.AnErr("session_error", s.Error)
	}
	evt.Msg("session published")

	for {
		select {
		case m.notify <- s:
			return
		default:
		}
		select {
		case <-m.notify:
			metrics.SessionNotificationsDroppedTotal.Inc()
		default:
		}
	}
}

func (m *SessionManager) runNotifier() {
	for {
		select {
		case <-m.done:
			return
		case s := <-m.notify:
			m.mu.Lock()
			subs := make([]subscriber, len(m.subscribers))
			copy(subs, m.subscribers)
			m.mu.Unlock()
			for _, sub := range subs {
				sub.cb(s)
			}
		}
	}
}

func (m *SessionManager) apply(req applyRequest) bool {
	if !m.started.Load() {
		return false
	}
	req.reply = make(chan bool, 1)
	select {
	case m.applies <- req:
	case <-m.done:
		return false
	}
	select {
	case ok := <-req.reply:
		return ok
	case <-m.done:
		return false
	}
}

// reconcile turns a principal into a session. It runs off the loop and
// reports back through m.results; store failures degrade to a minimal
// client profile instead of leaving the session pending.
func (m *SessionManager) reconcile(ctx context.Context, generation uint64, p *domain.Principal) {
	res := reconcileResult{generation: generation, started: time.Now()}
	log := m.log.With().Str("principal_id", p.ID).Uint64("generation", generation).Logger()

	profile, err := m.getProfile(ctx, p.ID)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("profile read failed, falling back to client profile")
		fallback := domain.NewProfile(p.ID, domain.RoleClient, m.now())
		res.session = domain.NewSession(p, fallback, fmt.Errorf("read profile: %w", err))
		res.outcome = "fallback"
	case profile == nil:
		profile, err = m.createProfile(ctx, p, log)
		res.session = domain.NewSession(p, profile, err)
		res.outcome = "created"
	default:
		res.session = domain.NewSession(p, m.touchLastLogin(p.ID, profile, log), nil)
		res.outcome = "existing"
	}

	select {
	case m.results <- res:
	case <-m.done:
	}
}

// createProfile resolves the role for a first sign-in and persists the
// default profile. Persistence is best-effort: on failure the in-memory
// profile is still returned together with the error.
func (m *SessionManager) createProfile(ctx context.Context, p *domain.Principal, log zerolog.Logger) (*domain.Profile, error) {
	role := m.resolver.ResolveRole(p.Email, p.Channel, p.RequestedRole)
	if violations := m.resolver.ValidateRoleAssignment(p.Email, role, p.Channel); len(violations) > 0 {
		log.Warn().Strs("violations", violations).Str("role", string(role)).Msg("resolved role breaks assignment rules")
	}

	profile := domain.NewProfile(p.ID, role, m.now())
	if err := m.upsertProfile(ctx, p.ID, domain.PatchFromProfile(profile)); err != nil {
		log.Warn().Err(err).Msg("failed to persist default profile, continuing in memory")
		return profile, fmt.Errorf("persist profile: %w", err)
	}
	log.Info().Str("role", string(role)).Str("channel", string(p.Channel)).Msg("profile created")
	return profile, nil
}

// touchLastLogin records the sign-in time without waiting for the store.
func (m *SessionManager) touchLastLogin(principalID string, profile *domain.Profile, log zerolog.Logger) *domain.Profile {
	next := profile.Clone()
	now := m.now()
	next.LastLoginAt = now

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		defer cancel()
		err := m.store.UpsertProfile(ctx, principalID, domain.ProfilePatch{LastLoginAt: &now})
		if err != nil {
			countStoreError("upsert", err)
			log.Warn().Err(err).Msg("failed to record last login")
		}
	}()
	return next
}

func (m *SessionManager) remoteSignOut() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()
	if err := m.idp.SignOut(ctx); err != nil {
		m.log.Warn().Err(err).Msg("identity provider sign-out failed")
	}
}

func (m *SessionManager) getProfile(ctx context.Context, principalID string) (*domain.Profile, error) {
	var profile *domain.Profile
	err := m.withRetry(ctx, "get", func(callCtx context.Context) error {
		p, err := m.store.GetProfile(callCtx, principalID)
		if err == nil {
			profile = p
		}
		return err
	})
	return profile, err
}

func (m *SessionManager) upsertProfile(ctx context.Context, principalID string, patch domain.ProfilePatch) error {
	return m.withRetry(ctx, "upsert", func(callCtx context.Context) error {
		return m.store.UpsertProfile(callCtx, principalID, patch)
	})
}

// withRetry runs fn with a per-attempt timeout and retries while the store
// reports itself unavailable.
func (m *SessionManager) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= m.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * m.cfg.RetryBackoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, ctx.Err())
			}
		}
		err := callWithTimeout(ctx, m.cfg.Timeout, fn)
		if err == nil {
			return nil
		}
		lastErr = classifyStoreError(err)
		countStoreError(op, lastErr)
		if !errors.Is(lastErr, domain.ErrStoreUnavailable) {
			break
		}
	}
	return lastErr
}

// callWithTimeout bounds fn even when the adapter ignores its context.
func callWithTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- fn(callCtx) }()

	select {
	case err := <-errc:
		return err
	case <-callCtx.Done():
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, callCtx.Err())
	}
}

func classifyStoreError(err error) error {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrStoreConflict),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrUnknown):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUnknown, err)
}

func countStoreError(op string, err error) {
	reason := "unknown"
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		reason = "unavailable"
	case errors.Is(err, domain.ErrStoreConflict):
		reason = "conflict"
	case errors.Is(err, domain.ErrProfileNotFound):
		reason = "not_found"
	}
	metrics.ProfileStoreErrorsTotal.WithLabelValues(op, reason).Inc()
}
