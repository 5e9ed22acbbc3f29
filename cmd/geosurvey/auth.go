package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the access token",
		Long: `Log in with a user name and password. The token is kept in the token file
until logout, or until the backend stops accepting it.

The password may also come from GEOSURVEY_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("GEOSURVEY_PASSWORD")
			}
			if name == "" || password == "" {
				return errors.New("--name and --password are required")
			}

			ok, err := c.session.Login(cmd.Context(), name, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if !ok {
				return errors.New("login failed: no token received")
			}

			fmt.Fprintf(c.out, "Logged in as %s\n", c.session.State().User.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.session.Logout()
			return nil
		},
	}
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			user := c.session.State().User
			fmt.Fprintf(c.out, "%s (id %d)\n", user.Name, user.ID)
			return nil
		},
	}
}
