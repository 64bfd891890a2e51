package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/certifychain/internal/persist"
	"github.com/wolfeidau/certifychain/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

// ErrSessionRejected is returned by Hydrate when a stored credential could
// not be confirmed by the remote service. The store is left logged out.
var ErrSessionRejected = errors.New("stored session rejected")

// Injector attaches the credential to every outgoing API request.
type Injector interface {
	Attach(token string)
	Detach()
}

// Remote is the subset of the API the store depends on. Both calls carry the
// credential explicitly rather than relying on the attached header.
type Remote interface {
	FetchProfile(ctx context.Context, token Credential) (*Profile, error)
	Invalidate(ctx context.Context, token Credential) error
}

// Option configures a Store.
type Option func(*Store)

// WithPurge registers purge to run when the session is cleared or replaced
// by a different credential. It empties caches holding responses fetched
// with the old credential.
func WithPurge(purge func() error) Option {
	return func(s *Store) {
		s.purge = purge
	}
}

// Store owns the session. All state writes happen under mu and bump epoch
// when the session identity changes; network calls never hold mu.
// Continuations compare the epoch captured before their network step and
// discard their result when it moved.
type Store struct {
	kv       persist.KV
	injector Injector
	remote   Remote
	purge    func() error
	metrics  *telemetry.Metrics

	mu    sync.RWMutex
	state Session
	epoch uint64

	hydrateOnce sync.Once
	hydrateErr  error

	refreshes singleflight.Group
}

// NewStore creates an unauthenticated store. Call Hydrate once before the
// first gate decision.
func NewStore(kv persist.KV, injector Injector, remote Remote, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		injector: injector,
		remote:   remote,
		metrics:  telemetry.GetMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the session as of the last completed mutation.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Hydrate restores the session from durable storage. It runs once per
// Store; concurrent and later callers wait for and share the first result.
//
// When a credential is stored without a profile the profile is fetched
// before Hydrate returns. Any failure of that fetch logs the session out and
// Hydrate returns an error wrapping ErrSessionRejected.
func (s *Store) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() {
		s.hydrateErr = s.hydrate(ctx)
	})
	return s.hydrateErr
}

func (s *Store) hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.epoch != 0 {
		// A Login or Logout already ran; disk state is not more recent.
		s.mu.Unlock()
		s.metrics.RecordHydration(ctx, "superseded")
		return nil
	}

	restored, needsProfile, ok := s.readDurableLocked()
	if !ok {
		s.mu.Unlock()
		s.metrics.RecordHydration(ctx, "empty")
		return nil
	}

	s.installLocked(restored, false)
	epoch := s.epoch
	s.mu.Unlock()

	log.Debug().
		Str("fingerprint", Fingerprint(restored.Token)).
		Bool("needsProfile", needsProfile).
		Msg("session restored from disk")

	if !needsProfile {
		s.metrics.RecordHydration(ctx, "restored")
		return nil
	}

	profile, err := s.fetchProfile(ctx, restored.Token)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		log.Debug().Msg("discarding hydrate result, session changed")
		s.metrics.RecordStaleResult(ctx, "hydrate")
		s.metrics.RecordHydration(ctx, "superseded")
		return nil
	}

	if err != nil {
		s.clearLocked()
		s.mu.Unlock()

		log.Warn().Err(err).Msg("stored session could not be confirmed, logging out")
		s.metrics.RecordHydration(ctx, "rejected")

		if ierr := s.remote.Invalidate(ctx, restored.Token); ierr != nil {
			log.Debug().Err(ierr).Msg("remote logout after rejected session failed")
		}
		return fmt.Errorf("%w: %w", ErrSessionRejected, err)
	}

	s.state.Profile = profile
	_ = s.putProfileLocked(profile)
	s.mu.Unlock()

	s.metrics.RecordHydration(ctx, "confirmed")
	return nil
}

// Login replaces the whole session. A nil profile leaves Profile absent.
// Repeated calls with the same arguments are idempotent and the most recent
// call wins.
func (s *Store) Login(ctx context.Context, token Credential, identity *Identity, profile *Profile) error {
	if token == "" || identity == nil {
		return ErrInvalidSession
	}

	next := Session{Token: token, Identity: identity, Profile: profile}.clone()

	s.mu.Lock()
	s.installLocked(next, true)
	s.mu.Unlock()

	log.Info().
		Int64("userID", identity.ID).
		Str("fingerprint", Fingerprint(token)).
		Bool("profile", profile != nil).
		Msg("logged in")
	s.metrics.RecordLogin(ctx)

	return nil
}

// Logout clears the session in memory and on disk, then makes a best-effort
// attempt to invalidate the credential remotely. The local clear completes
// before the remote call starts; the returned error only reports a failed
// remote invalidation and wraps ErrRemoteLogout.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.state.Token
	s.clearLocked()
	s.mu.Unlock()

	s.metrics.RecordLogout(ctx)

	if token == "" {
		return nil
	}

	log.Info().Str("fingerprint", Fingerprint(token)).Msg("logged out")

	if err := s.remote.Invalidate(ctx, token); err != nil {
		log.Warn().Err(err).Msg("remote logout failed")
		s.metrics.RecordRemoteLogoutError(ctx)
		return fmt.Errorf("%w: %w", ErrRemoteLogout, err)
	}

	return nil
}

// RefreshProfile fetches the profile for the current credential and
// replaces it. On failure the session is kept as is. Concurrent refreshes
// for the same session share one request. A result that arrives after the
// session was replaced or cleared is discarded with ErrStaleResult.
func (s *Store) RefreshProfile(ctx context.Context) (*Profile, error) {
	s.mu.RLock()
	token, epoch := s.state.Token, s.epoch
	s.mu.RUnlock()

	if token == "" {
		return nil, ErrNotAuthenticated
	}

	v, err, _ := s.refreshes.Do(strconv.FormatUint(epoch, 10), func() (any, error) {
		return s.fetchProfile(ctx, token)
	})
	if err != nil {
		log.Warn().Err(err).Msg("profile refresh failed, keeping session")
		s.metrics.RecordRefresh(ctx, false)
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}
	profile := *(v.(*Profile))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		log.Debug().Msg("discarding profile refresh, session changed")
		s.metrics.RecordStaleResult(ctx, "refresh")
		return nil, ErrStaleResult
	}

	s.state.Profile = &profile
	_ = s.putProfileLocked(&profile)
	s.metrics.RecordRefresh(ctx, true)

	out := profile
	return &out, nil
}

func (s *Store) fetchProfile(ctx context.Context, token Credential) (*Profile, error) {
	profile, err := s.remote.FetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedProfile)
	}
	out := *profile
	return &out, nil
}

// installLocked replaces the session. Attaching the credential is the last
// step so no request goes out with a header for a half-installed session.
func (s *Store) installLocked(next Session, persistIt bool) {
	if s.state.Token != "" && s.state.Token != next.Token {
		s.purgeLocked()
	}
	s.epoch++
	s.state = next
	if persistIt {
		s.writeDurableLocked(next)
	}
	s.injector.Attach(string(next.Token))
}

// clearLocked resets to the unauthenticated state. The token key goes first
// since its absence alone means logged out on disk.
func (s *Store) clearLocked() {
	s.epoch++
	s.state = Session{}
	s.removeDurableLocked(persist.Keys...)
	s.purgeLocked()
	s.injector.Detach()
}

func (s *Store) purgeLocked() {
	if s.purge == nil {
		return
	}
	if err := s.purge(); err != nil {
		s.persistFailed("http-cache", err)
	}
}

// writeDurableLocked removes the stored token, writes identity and profile,
// and writes the token last. When any earlier step fails the token is not
// written, so the disk never pairs a credential with another session's
// identity or profile and the next start hydrates as logged out.
func (s *Store) writeDurableLocked(next Session) {
	if err := s.kv.Remove(persist.KeyToken); err != nil {
		s.persistFailed(persist.KeyToken, err)
		return
	}

	identity, err := json.Marshal(next.Identity)
	if err != nil {
		s.persistFailed(persist.KeyIdentity, err)
		return
	}
	if err := s.kv.Put(persist.KeyIdentity, string(identity)); err != nil {
		s.persistFailed(persist.KeyIdentity, err)
		return
	}

	if next.Profile != nil {
		if err := s.putProfileLocked(next.Profile); err != nil {
			return
		}
	} else if err := s.kv.Remove(persist.KeyProfile); err != nil {
		s.persistFailed(persist.KeyProfile, err)
		return
	}

	if err := s.kv.Put(persist.KeyToken, string(next.Token)); err != nil {
		s.persistFailed(persist.KeyToken, err)
	}
}

func (s *Store) putProfileLocked(profile *Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		s.persistFailed(persist.KeyProfile, err)
		return err
	}
	if err := s.kv.Put(persist.KeyProfile, string(data)); err != nil {
		s.persistFailed(persist.KeyProfile, err)
		return err
	}
	return nil
}

func (s *Store) removeDurableLocked(keys ...string) {
	for _, key := range keys {
		if err := s.kv.Remove(key); err != nil {
			s.persistFailed(key, err)
		}
	}
}

// readDurableLocked loads the stored session. ok is false when there is no
// usable session on disk; in that case every stored key is removed so that
// orphaned identity or profile values are never read later.
func (s *Store) readDurableLocked() (restored Session, needsProfile bool, ok bool) {
	token, err := s.kv.Get(persist.KeyToken)
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, persist.ErrNotFound) {
			log.Warn().Err(err).Msg("stored credential unreadable, discarding session")
		}
		s.removeDurableLocked(persist.Keys...)
		return Session{}, false, false
	}

	rawIdentity, err := s.kv.Get(persist.KeyIdentity)
	if err != nil {
		log.Warn().Err(err).Msg("stored credential has no identity, discarding session")
		s.removeDurableLocked(persist.Keys...)
		return Session{}, false, false
	}

	identity, err := DecodeIdentity([]byte(rawIdentity))
	if err != nil {
		log.Warn().Err(err).Msg("stored identity is invalid, discarding session")
		s.removeDurableLocked(persist.Keys...)
		return Session{}, false, false
	}

	restored = Session{Token: Credential(token), Identity: identity}

	rawProfile, err := s.kv.Get(persist.KeyProfile)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			log.Warn().Err(err).Msg("stored profile unreadable, refetching")
			s.removeDurableLocked(persist.KeyProfile)
		}
		return restored, true, true
	}

	profile, err := DecodeProfile([]byte(rawProfile))
	if err != nil {
		log.Warn().Err(err).Msg("stored profile is invalid, refetching")
		s.removeDurableLocked(persist.KeyProfile)
		return restored, true, true
	}

	restored.Profile = profile
	return restored, false, true
}

func (s *Store) persistFailed(key string, err error) {
	log.Warn().Err(err).Str("key", key).Msg("session persistence failed, continuing in memory")
	s.metrics.RecordPersistError(context.Background(), key)
}
