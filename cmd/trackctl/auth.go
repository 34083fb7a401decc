package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("TRACKHUB_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or TRACKHUB_PASSWORD) are required")
			}
			base, err := a.baseURL()
			if err != nil {
				return err
			}
			// Remember the server before signing in so the session saves
			// the token next to it.
			f, err := a.store().Load()
			if err != nil {
				return err
			}
			f.BaseURL = base
			if err := a.store().Save(f); err != nil {
				return err
			}

			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			u, _ := s.User()
			fmt.Fprintf(a.out, "Signed in as %s <%s> (%s)\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			u, _ := s.User()
			if a.asJSON {
				return a.printJSON(u)
			}
			fmt.Fprintf(a.out, "%s <%s> role=%s id=%s\n", u.Name, u.Email, u.Role, u.ID.Hex())
			if p, ok := s.CurrentProject(); ok {
				fmt.Fprintf(a.out, "current project: %s (%s)\n", p.Key, p.Name)
			}
			return nil
		},
	}
}
