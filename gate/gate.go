// Package gate decides whether a protected page may render.
package gate

import "github.com/mbolis/geo-survey/session"

type Kind int

const (
	// Wait renders a neutral placeholder while the session is loading.
	Wait Kind = iota
	Render
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Wait:
		return "wait"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

type Decision struct {
	Kind Kind
	// Target is set for Redirect decisions.
	Target string
}

// Decide has no side effects; the hosting page performs any navigation.
// A loading session never redirects, even if its user is still nil.
func Decide(st session.State) Decision {
	switch {
	case st.Loading || st.Phase == session.Uninitialized || st.Phase == session.Loading:
		return Decision{Kind: Wait}
	case st.User == nil:
		return Decision{Kind: Redirect, Target: session.EntryPath}
	default:
		return Decision{Kind: Render}
	}
}

// Watch calls fn with the current decision, then again after every session
// change, so a logout flips a mounted page at once.
func Watch(s *session.Store, fn func(Decision)) (stop func()) {
	stop = s.Subscribe(func(st session.State) {
		fn(Decide(st))
	})
	fn(Decide(s.State()))
	return stop
}
