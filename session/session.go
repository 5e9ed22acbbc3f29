// Package session owns the authentication token and the signed-in user.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/looplab/fsm"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/model"
)

// EntryPath is the public page anonymous users are sent to.
const EntryPath = "/login"

type Phase int

const (
	Uninitialized Phase = iota
	Loading
	Authenticated
	Anonymous
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "unknown"
}

var phases = map[string]Phase{
	Uninitialized.String(): Uninitialized,
	Loading.String():       Loading,
	Authenticated.String(): Authenticated,
	Anonymous.String():     Anonymous,
}

const (
	eventTokenFound = "token_found"
	eventNoToken    = "no_token"
	eventLogin      = "login"
	eventUserLoaded = "user_loaded"
	eventFailed     = "failed"
	eventLogout     = "logout"
)

func newMachine(onEnter fsm.Callback) *fsm.FSM {
	all := []string{Uninitialized.String(), Loading.String(), Authenticated.String(), Anonymous.String()}
	return fsm.NewFSM(
		Uninitialized.String(),
		fsm.Events{
			{Name: eventTokenFound, Src: all, Dst: Loading.String()},
			{Name: eventNoToken, Src: all, Dst: Anonymous.String()},
			{Name: eventLogin, Src: all, Dst: Loading.String()},
			// a slower concurrent login may still complete
			{Name: eventUserLoaded, Src: []string{Loading.String(), Authenticated.String(), Anonymous.String()}, Dst: Authenticated.String()},
			{Name: eventFailed, Src: []string{Loading.String(), Authenticated.String(), Anonymous.String()}, Dst: Anonymous.String()},
			{Name: eventLogout, Src: all, Dst: Anonymous.String()},
		},
		fsm.Callbacks{"enter_state": onEnter},
	)
}

// State is a snapshot of the session. User is only set together with Token.
type State struct {
	Phase   Phase
	Token   string
	User    *model.User
	Loading bool
}

// Authenticator is the part of the API the session needs.
type Authenticator interface {
	Token(ctx context.Context, name, password string) (model.Token, error)
	Me(ctx context.Context, token string) (model.User, error)
}

// Navigator moves the hosting UI between pages.
type Navigator interface {
	Path() string
	Redirect(path string)
}

type Store struct {
	api    Authenticator
	tokens TokenStore
	nav    Navigator

	// fireMu orders transitions; mu guards the snapshot and listeners.
	// Listeners run under fireMu and must not change the session.
	fireMu    sync.Mutex
	machine   *fsm.FSM
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// New creates an uninitialized store. nav may be nil.
func New(api Authenticator, tokens TokenStore, nav Navigator) *Store {
	s := &Store{
		api:       api,
		tokens:    tokens,
		nav:       nav,
		listeners: make(map[int]func(State)),
	}
	s.machine = newMachine(func(_ context.Context, e *fsm.Event) {
		var fn func(*State)
		if len(e.Args) > 0 {
			fn, _ = e.Args[0].(func(*State))
		}
		s.apply(phases[e.Dst], fn)
	})
	return s
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the in-memory token of an authenticated session.
func (s *Store) Token() string {
	return s.State().Token
}

// Subscribe registers fn to be called after every state change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Start rehydrates the session from the persisted token.
func (s *Store) Start(ctx context.Context) {
	token := s.tokens.Token()
	if token == "" {
		s.fire(ctx, eventNoToken, reset)
		return
	}

	s.fire(ctx, eventTokenFound, reset)
	s.fetchUser(ctx, token)
}

// Login exchanges credentials for a token and loads the user. It returns
// false without error when the backend answers without a token; any failure
// is returned to the caller.
func (s *Store) Login(ctx context.Context, name, password string) (bool, error) {
	s.fire(ctx, eventLogin, nil)
	defer s.settle(ctx)

	token, err := s.api.Token(ctx, name, password)
	if err != nil {
		log.Debugf("session.login: %s", err)
		return false, err
	}
	if token.AccessToken == "" {
		return false, nil
	}

	err = s.tokens.Save(token.AccessToken)
	if err != nil {
		return false, err
	}

	err = s.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Logout forgets the token and the user, then sends the UI to the entry page.
func (s *Store) Logout() {
	err := s.tokens.Clear()
	if err != nil {
		log.Warnf("session.logout.clear_token: %s", err)
	}
	s.fire(context.Background(), eventLogout, reset)

	if s.nav != nil && s.nav.Path() != EntryPath {
		s.nav.Redirect(EntryPath)
	}
}

// fetchUser validates token against the backend. Any failure discards the
// persisted token and leaves the session anonymous.
func (s *Store) fetchUser(ctx context.Context, token string) error {
	user, err := s.api.Me(ctx, token)
	if err != nil {
		log.Warnf("session.fetch_user: %s, logging out", err)
		clearErr := s.tokens.Clear()
		if clearErr != nil {
			log.Warnf("session.fetch_user.clear_token: %s", clearErr)
		}
		s.fire(ctx, eventFailed, reset)
		return err
	}

	s.fire(ctx, eventUserLoaded, func(st *State) {
		st.Token = token
		st.User = &user
	})
	return nil
}

// settle leaves the loading phase after a login that returned early.
func (s *Store) settle(ctx context.Context) {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	if s.machine.Current() != Loading.String() {
		return
	}
	if s.State().User != nil {
		s.event(ctx, eventUserLoaded, nil)
	} else {
		s.event(ctx, eventFailed, reset)
	}
}

func (s *Store) fire(ctx context.Context, event string, fn func(*State)) {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()
	s.event(ctx, event, fn)
}

// event runs a transition. The enter_state callback applies fn; when the
// phase does not change fn is applied directly.
func (s *Store) event(ctx context.Context, event string, fn func(*State)) {
	err := s.machine.Event(context.WithoutCancel(ctx), event, fn)

	var noTransition fsm.NoTransitionError
	switch {
	case err == nil:
	case errors.As(err, &noTransition):
		s.apply(phases[s.machine.Current()], fn)
	default:
		log.Debugf("session.%s: %s", event, err)
	}
}

func (s *Store) apply(phase Phase, fn func(*State)) {
	s.mu.Lock()
	before := s.state
	if fn != nil {
		fn(&s.state)
	}
	s.state.Phase = phase
	s.state.Loading = phase == Loading
	after := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if before == after {
		return
	}
	for _, l := range listeners {
		l(after)
	}
}

func reset(st *State) {
	*st = State{}
}
