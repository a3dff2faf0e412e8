// Package session holds the authentication session: the token pair, the
// identity resolved from it, and the observers that react to changes.
//
// Every mutation bumps a generation counter. An identity fetch remembers the
// generation it started under and its result is discarded if a login or
// logout happened in the meantime.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/log"
)

// ErrNoAccessToken is returned when the token endpoint answers without an
// access token.
var ErrNoAccessToken = errors.New("token response did not contain an access token")

// IdentityClient is the part of the API client the store needs.
type IdentityClient interface {
	User(ctx context.Context) (api.User, error)
	Login(ctx context.Context, creds api.Credentials) (api.Tokens, error)
}

// Refresher is implemented by clients that can exchange a refresh token.
type Refresher interface {
	RefreshTokens(ctx context.Context, refresh string) (api.Tokens, error)
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	// Identity is nil until a fetch for the current token has succeeded.
	Identity *api.User
}

// HasToken reports whether an access token is present
func (s Snapshot) HasToken() bool {
	return s.AccessToken != ""
}

// Username returns the resolved username, or "" when unknown
func (s Snapshot) Username() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Username
}

// Store is the session store. It is safe for concurrent use.
type Store struct {
	client    IdentityClient
	persister Persister
	logger    *log.Logger

	mu         sync.RWMutex
	tokens     api.Tokens
	identity   *api.User
	generation uint64
	base       context.Context
	cancel     context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	wg sync.WaitGroup
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store. A nil persister keeps the session in memory.
func New(client IdentityClient, persister Persister, opts ...Option) *Store {
	if persister == nil {
		persister = NewMemoryStore()
	}
	s := &Store{
		client:    client,
		persister: persister,
		logger:    log.Nop(),
		base:      context.Background(),
		subs:      make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init restores a persisted session. When a token is found an identity fetch
// starts in the background; ctx bounds every background fetch.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	tokens, err := s.persister.Load()
	if err != nil {
		s.logger.Warn("failed to restore session", "error", err)
		return err
	}
	if tokens.Empty() {
		return nil
	}
	s.apply(tokens)
	return nil
}

// Login exchanges credentials for tokens and installs them.
func (s *Store) Login(ctx context.Context, creds api.Credentials) error {
	tokens, err := s.client.Login(ctx, creds)
	if err != nil {
		return err
	}
	if tokens.Empty() {
		return ErrNoAccessToken
	}
	return s.SetTokens(tokens)
}

// Refresh replaces the access token using the stored refresh token.
func (s *Store) Refresh(ctx context.Context) error {
	r, ok := s.client.(Refresher)
	if !ok {
		return errors.New("client does not support token refresh")
	}
	refresh := s.Snapshot().RefreshToken
	if refresh == "" {
		return errors.New("no refresh token stored")
	}
	tokens, err := r.RefreshTokens(ctx, refresh)
	if err != nil {
		return err
	}
	if tokens.Empty() {
		return ErrNoAccessToken
	}
	return s.SetTokens(tokens)
}

// SetTokens installs a token pair, clears the identity and starts a
// background identity fetch. The in-memory state changes even if persisting
// fails; the persistence error is returned.
func (s *Store) SetTokens(tokens api.Tokens) error {
	s.apply(tokens)
	if err := s.persister.Save(tokens); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
		return err
	}
	return nil
}

func (s *Store) apply(tokens api.Tokens) {
	s.mu.Lock()
	s.tokens = tokens
	s.identity = nil
	s.generation++
	ctx := s.restartFetchLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)

	if !tokens.Empty() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.FetchIdentity(ctx)
		}()
	}
}

// restartFetchLocked cancels any in-flight background fetch and returns the
// context for the next one.
func (s *Store) restartFetchLocked() context.Context {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	return ctx
}

// Logout clears the session. Calling it on an empty session is a no-op apart
// from removing any persisted entry.
func (s *Store) Logout() error {
	s.mu.Lock()
	wasEmpty := s.tokens.Empty() && s.identity == nil
	s.tokens = api.Tokens{}
	s.identity = nil
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	err := s.persister.Clear()
	if !wasEmpty {
		s.notify(snap)
	}
	return err
}

// FetchIdentity resolves the identity for the current token. It returns the
// empty user when there is no token or the request fails; the client has
// already reported the failure. The result is stored only if the session has
// not changed since the fetch started.
func (s *Store) FetchIdentity(ctx context.Context) api.User {
	s.mu.RLock()
	token := s.tokens.Access
	gen := s.generation
	s.mu.RUnlock()

	if token == "" {
		return api.User{}
	}

	user, err := s.client.User(ctx)
	if err != nil {
		s.logger.Debug("identity fetch failed", "error", err)
		return api.User{}
	}
	if !user.LoggedIn() {
		return user
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale identity", "username", user.Username)
		return user
	}
	stored := user
	s.identity = &stored
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return user
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{AccessToken: s.tokens.Access, RefreshToken: s.tokens.Refresh}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// AccessToken implements api.TokenSource. Each use extends the persisted
// session's inactivity window.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	token := s.tokens.Access
	s.mu.RUnlock()

	if token != "" {
		if t, ok := s.persister.(Toucher); ok {
			if err := t.Touch(); err != nil {
				s.logger.Debug("failed to extend session", "error", err)
			}
		}
	}
	return token
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Wait blocks until background identity fetches have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels background fetches and waits for them.
func (s *Store) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
