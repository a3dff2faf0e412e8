// Package guard decides whether a protected screen may render. It resolves
// the session identity at most once per mount and never changes state after
// the screen has been unmounted.
package guard

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/session"
)

// State is the authentication state seen by a protected screen.
type State int

const (
	// Unknown means a token is present but the identity is not resolved yet
	Unknown State = iota
	// Anonymous means there is no usable session
	Anonymous
	// Authenticated means the identity is resolved
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Action is a choice offered by the login-required modal.
type Action int

const (
	GoHome Action = iota
	GoLogin
)

func (a Action) String() string {
	if a == GoLogin {
		return "Login"
	}
	return "Home"
}

// Modal is the blocking dialog shown to anonymous users.
type Modal struct {
	Title   string
	Body    string
	Actions []Action
}

// LoginRequired is the modal shown on protected screens.
var LoginRequired = Modal{
	Title:   "Login Required",
	Body:    "You need to be logged in to view this page.",
	Actions: []Action{GoHome, GoLogin},
}

// IdentitySource is the part of the session store the guard reads.
type IdentitySource interface {
	Snapshot() session.Snapshot
	FetchIdentity(ctx context.Context) api.User
}

// Guard protects one screen.
type Guard struct {
	src IdentitySource

	// OnSettle, when set, is called once the state leaves Unknown for the
	// current mount. It is never called after Unmount.
	OnSettle func(State)

	mu         sync.Mutex
	state      State
	generation uint64
	mounted    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a guard over src
func New(src IdentitySource) *Guard {
	return &Guard{src: src, state: Unknown}
}

// Mount computes the initial state. If the identity is still unknown a
// single fetch is started in the background. It returns the initial state.
func (g *Guard) Mount(ctx context.Context) State {
	snap := g.src.Snapshot()

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.generation++
	g.mounted = true
	gen := g.generation
	g.state = initialState(snap)
	state := g.state
	if state != Unknown {
		g.cancel = nil
		g.mu.Unlock()
		return state
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer cancel()
		user := g.src.FetchIdentity(fetchCtx)
		g.settle(gen, user.Username)
	}()
	return state
}

func initialState(snap session.Snapshot) State {
	switch {
	case !snap.HasToken():
		return Anonymous
	case snap.Identity != nil && snap.Identity.LoggedIn():
		return Authenticated
	default:
		return Unknown
	}
}

func (g *Guard) settle(gen uint64, username string) {
	g.mu.Lock()
	if !g.mounted || g.generation != gen {
		g.mu.Unlock()
		return
	}
	g.state = resolve(username)
	state := g.state
	onSettle := g.OnSettle
	g.mu.Unlock()

	if onSettle != nil {
		onSettle(state)
	}
}

// Resolve settles the state from a username synchronously. An empty
// username means the fetch failed or returned nobody.
func (g *Guard) Resolve(username string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = resolve(username)
	return g.state
}

func resolve(username string) State {
	if username == "" {
		return Anonymous
	}
	return Authenticated
}

// Unmount cancels an in-flight fetch. Its result is discarded.
func (g *Guard) Unmount() {
	g.mu.Lock()
	g.mounted = false
	g.generation++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.mu.Unlock()
}

// Wait blocks until the background fetch, if any, has returned.
func (g *Guard) Wait() {
	g.wg.Wait()
}

// State returns the current state
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Modal returns the login-required modal when the user is anonymous.
func (g *Guard) Modal() *Modal {
	if g.State() != Anonymous {
		return nil
	}
	m := LoginRequired
	return &m
}
