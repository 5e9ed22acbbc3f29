package routes

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/log"
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login trades a username and password form for a bearer token.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := loginForm{}
		err := render.DecodeForm(r.Body, &creds)
		if err != nil || creds.Username == "" || creds.Password == "" {
			httpx.LogStatusMsg(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "login.form", "username and password are required")
			return
		}

		resp, err := grant(app, r, url.Values{
			"grant_type": {"password"},
			"username":   {creds.Username},
			"password":   {creds.Password},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "login.new_request", err)
			return
		}
		if resp.Status() != http.StatusOK {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "login.credentials", "Incorrect username or password")
			return
		}

		log.Debugf("login: token issued to %s", creds.Username)
		resp.Flush(w)
	}
}

// Refresh expects an "Authorization: Refresh <token>" header.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("Authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		resp, err := grant(app, r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "refresh.new_request", err)
			return
		}
		if resp.Status() != http.StatusOK {
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.grant", "Could not refresh token")
			return
		}
		resp.Flush(w)
	}
}

// the bearer server only speaks its own form protocol, so requests are
// rebuilt for it and its answer is buffered
func grant(app app.App, r *http.Request, body url.Values) (httpx.ResponseBuffer, error) {
	encoded := body.Encode()
	req, err := http.NewRequestWithContext(r.Context(), "POST", "/", strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(encoded)))

	resp := httpx.NewResponseBuffer()
	app.UserCredentials(resp, req)
	return resp, nil
}
