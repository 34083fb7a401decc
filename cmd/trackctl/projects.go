package main

import (
	"fmt"
	"strings"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/domain/projectkey"
	"github.com/dalemusser/trackhub/internal/client/state"
	"github.com/spf13/cobra"
)

// projectRef resolves an id or key against the session's project cache.
// An empty ref means the current project.
func projectRef(s *state.Session, ref string) (string, error) {
	if ref == "" {
		p, ok := s.CurrentProject()
		if !ok {
			return "", fmt.Errorf("no project selected; pass one or run `trackctl projects select`")
		}
		return p.ID.Hex(), nil
	}
	key := projectkey.Normalize(ref)
	for _, p := range s.Projects() {
		if p.ID.Hex() == ref || p.Key == key {
			return p.ID.Hex(), nil
		}
	}
	// Let the server decide: admins may address projects they don't belong to.
	return ref, nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and manage projects",
	}
	cmd.AddCommand(
		a.projectsListCmd(),
		a.projectsCreateCmd(),
		a.projectsSelectCmd(),
		a.projectsUpdateCmd(),
		a.projectsDeleteCmd(),
	)
	return cmd
}

func (a *app) projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the projects you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			current := ""
			if p, ok := s.CurrentProject(); ok {
				current = p.ID.Hex()
			}
			return a.printProjects(s.Projects(), current)
		},
	}
}

func (a *app) projectsCreateCmd() *cobra.Command {
	var in coordinator.CreateProjectInput
	var tags string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project and select it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			in.Name = args[0]
			in.Tags = splitTags(tags)
			p, err := s.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printProject(p)
		},
	}
	cmd.Flags().StringVar(&in.Key, "key", "", "Project key (derived from the name when empty)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Visibility, "visibility", "", "private, team or public")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	return cmd
}

func (a *app) projectsSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select ID|KEY",
		Short: "Make a project current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SelectProject(args[0]); err != nil {
				return err
			}
			p, _ := s.CurrentProject()
			fmt.Fprintf(a.out, "Selected %s (%s)\n", p.Key, p.Name)
			return nil
		},
	}
}

func (a *app) projectsUpdateCmd() *cobra.Command {
	var name, key, description, status, visibility, tags string
	cmd := &cobra.Command{
		Use:   "update [ID|KEY]",
		Short: "Change a project (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			id, err := projectRef(s, firstArg(args))
			if err != nil {
				return err
			}
			var in coordinator.UpdateProjectInput
			f := cmd.Flags()
			if f.Changed("name") {
				in.Name = &name
			}
			if f.Changed("key") {
				in.Key = &key
			}
			if f.Changed("description") {
				in.Description = &description
			}
			if f.Changed("status") {
				in.Status = &status
			}
			if f.Changed("visibility") {
				in.Visibility = &visibility
			}
			if f.Changed("tags") {
				t := splitTags(tags)
				in.Tags = &t
			}
			p, err := s.UpdateProject(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return a.printProject(p)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&key, "key", "", "New key")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "active, archived or completed")
	cmd.Flags().StringVar(&visibility, "visibility", "", "private, team or public")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags (replaces the list)")
	return cmd
}

func (a *app) projectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID|KEY",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			id, err := projectRef(s, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Project deleted")
			return nil
		},
	}
}

func (a *app) membersCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage project members",
	}
	cmd.PersistentFlags().StringVar(&project, "project", "", "Project id or key (default: current)")

	var userID, email, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a member, or change an existing member's role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" && email == "" {
				return fmt.Errorf("--user or --email is required")
			}
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			id, err := projectRef(s, project)
			if err != nil {
				return err
			}
			p, err := s.AddMember(cmd.Context(), id, coordinator.AddMemberInput{UserID: userID, Email: email, Role: role})
			if err != nil {
				return err
			}
			return a.printProject(p)
		},
	}
	add.Flags().StringVar(&userID, "user", "", "User id")
	add.Flags().StringVar(&email, "email", "", "User email")
	add.Flags().StringVar(&role, "role", "", "manager, developer or member")

	remove := &cobra.Command{
		Use:   "remove USER_ID",
		Short: "Remove a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			id, err := projectRef(s, project)
			if err != nil {
				return err
			}
			p, err := s.RemoveMember(cmd.Context(), id, args[0])
			if err != nil {
				return err
			}
			return a.printProject(p)
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
