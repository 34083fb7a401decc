package main

import (
	"context"
	"errors"
	"io"

	"github.com/dalemusser/trackhub/internal/client/api"
	"github.com/dalemusser/trackhub/internal/client/credfile"
	"github.com/dalemusser/trackhub/internal/client/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultServer = "http://localhost:8080"

// app carries the persistent flags every command shares.
type app struct {
	server   string
	credPath string
	asJSON   bool
	verbose  bool
	out      io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "trackctl",
		Short:         "TrackHub command-line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.server, "server", "", "TrackHub server URL (default: last used, or "+defaultServer+")")
	root.PersistentFlags().StringVar(&a.credPath, "credentials", credfile.DefaultPath(), "Credential file")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.projectsCmd(),
		a.membersCmd(),
		a.tasksCmd(),
		a.adminCmd(),
	)
	return root
}

func (a *app) logger() *zap.Logger {
	if !a.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (a *app) store() credfile.Store {
	return credfile.Store{Path: a.credPath}
}

// baseURL picks --server, then the stored URL, then the default.
func (a *app) baseURL() (string, error) {
	if a.server != "" {
		return a.server, nil
	}
	f, err := a.store().Load()
	if err != nil {
		return "", err
	}
	if f.BaseURL != "" {
		return f.BaseURL, nil
	}
	return defaultServer, nil
}

// session builds a Session against the chosen server and restores any
// stored credential.
func (a *app) session(ctx context.Context) (*state.Session, error) {
	base, err := a.baseURL()
	if err != nil {
		return nil, err
	}
	log := a.logger()
	client, err := api.New(base, nil, log)
	if err != nil {
		return nil, err
	}
	s := state.New(client, a.store(), log)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var errNotSignedIn = errors.New("not signed in; run `trackctl login` first")

func (a *app) signedIn(ctx context.Context) (*state.Session, error) {
	s, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if !s.SignedIn() {
		return nil, errNotSignedIn
	}
	return s, nil
}
