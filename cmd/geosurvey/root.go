package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mbolis/geo-survey/client"
	"github.com/mbolis/geo-survey/gate"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/session"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8000"

var errNotLoggedIn = errors.New("not logged in")

type cli struct {
	apiURL    string
	tokenFile string
	debug     bool

	out     io.Writer
	api     *client.Client
	tokens  session.TokenStore
	session *session.Store
	nav     *navigator
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "geosurvey",
		Short:         "Create questionnaires, collect geo-tagged answers and browse them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api-url", envOr("GEOSURVEY_API_URL", defaultAPIURL), "backend base URL")
	flags.StringVar(&c.tokenFile, "token-file", "", "where the access token is kept (default <user config dir>/geosurvey/token)")
	flags.BoolVar(&c.debug, "debug", false, "log at DEBUG level")

	root.AddCommand(
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newWhoamiCmd(),
		c.newQuestionnaireCmd(),
		c.newMapCmd(),
		c.newDataCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.debug {
		log.SetLevel(log.DebugLevel)
	}

	path := c.tokenFile
	if path == "" {
		var err error
		path, err = session.DefaultTokenPath()
		if err != nil {
			return fmt.Errorf("locating token file: %w", err)
		}
	}

	c.out = cmd.OutOrStdout()
	c.tokens = session.NewFileTokens(path)
	c.api = client.New(c.apiURL, client.WithTokenSource(c.tokens))
	c.nav = &navigator{path: "/" + cmd.Name(), out: c.out}
	c.session = session.New(c.api, c.tokens, c.nav)
	return nil
}

// requireUser rehydrates the session and lets the command run only when the
// gate would render a protected page.
func (c *cli) requireUser(ctx context.Context) error {
	c.session.Start(ctx)

	d := gate.Decide(c.session.State())
	switch d.Kind {
	case gate.Render:
		return nil
	case gate.Redirect:
		c.nav.Redirect(d.Target)
	}
	return errNotLoggedIn
}

// navigator maps page moves onto terminal hints.
type navigator struct {
	path string
	out  io.Writer
}

func (n *navigator) Path() string {
	return n.path
}

func (n *navigator) Redirect(path string) {
	n.path = path
	if path == session.EntryPath {
		fmt.Fprintln(n.out, "Please log in: geosurvey login --name <name>")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
