package middlewares

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/oauth"
	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/model"
)

type contextKey struct{ name string }

var userKey = &contextKey{"user"}

// CurrentUser returns the user loaded by Authenticated or OptionalAuth.
func CurrentUser(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}

// WithUser is what the auth middlewares do once a token checks out.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Authenticated rejects requests without a valid bearer token for an active user.
func Authenticated(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return authorize(app, next, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			if r.Header.Get("Authorization") == "" {
				httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.missing", "Not authenticated")
				return
			}
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.invalid", "Could not validate credentials")
		}))
	}
}

// OptionalAuth loads the user when a valid token is sent, and lets the
// request through anonymously otherwise.
func OptionalAuth(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return authorize(app, next, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del("Authorization")
			next.ServeHTTP(w, r)
		}))
	}
}

// oauth.Authorize answers on its own when the token is bad; its response is
// buffered so that anonymous can take over in that case.
func authorize(app app.App, next http.Handler, anonymous http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var passed bool
		guard := oauth.Authorize(app.TokenSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			loadUser(app, w, r, next)
		}))

		buf := httpx.NewResponseBuffer()
		guard.ServeHTTP(buf, r)
		if passed {
			buf.Flush(w)
			return
		}
		anonymous.ServeHTTP(w, r)
	})
}

func loadUser(app app.App, w http.ResponseWriter, r *http.Request, next http.Handler) {
	name, _ := r.Context().Value(oauth.CredentialContext).(string)

	var user model.User
	err := app.GetContext(r.Context(), &user, "SELECT id, name, is_active FROM user WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.user", "Could not validate credentials")
		return
	}
	if err != nil {
		httpx.LogInternalError(w, r, "auth.user", err)
		return
	}
	if !user.IsActive {
		httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "auth.user", "Inactive user")
		return
	}

	next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
}

// Cors lets the browser frontend, served from another origin, call the API.
func Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Questionnaire-Password")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
