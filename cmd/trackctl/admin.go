package main

import (
	"fmt"
	"strings"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/spf13/cobra"
)

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator views and actions",
	}

	var role, search string
	users := &cobra.Command{
		Use:   "users",
		Short: "List every user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			needle := strings.ToLower(search)
			var out []models.User
			for _, u := range s.AdminUsers() {
				if role != "" && u.Role != role {
					continue
				}
				if needle != "" && !strings.Contains(strings.ToLower(u.Name), needle) && !strings.Contains(u.Email, needle) {
					continue
				}
				out = append(out, u)
			}
			return a.printUsers(out)
		},
	}
	users.Flags().StringVar(&role, "role", "", "Only users with this role")
	users.Flags().StringVar(&search, "search", "", "Match name or email")

	projects := &cobra.Command{
		Use:   "projects",
		Short: "List every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			return a.printProjects(s.AdminProjects(), "")
		},
	}

	tasks := &cobra.Command{
		Use:   "tasks",
		Short: "List every task",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			return a.printTasks(s.AdminTasks())
		},
	}

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Show system totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			d, err := s.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(d)
			}
			return a.table([]string{"USERS", "ADMINS", "PROJECTS", "TASKS", "DONE", "OVERDUE"}, [][]string{{
				fmt.Sprint(d.TotalUsers), fmt.Sprint(d.AdminUsers), fmt.Sprint(d.TotalProjects),
				fmt.Sprint(d.TotalTasks), fmt.Sprint(d.CompletedTasks), fmt.Sprint(d.OverdueTasks),
			}})
		},
	}

	cmd.AddCommand(users, projects, tasks, dashboard, a.adminUpdateUserCmd(), a.adminDeleteUserCmd())
	return cmd
}

func (a *app) adminUpdateUserCmd() *cobra.Command {
	var name, email, role string
	var active bool
	cmd := &cobra.Command{
		Use:   "update-user ID",
		Short: "Change another user's profile, role or active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			var in coordinator.AdminUserInput
			f := cmd.Flags()
			if f.Changed("name") {
				in.Name = &name
			}
			if f.Changed("email") {
				in.Email = &email
			}
			if f.Changed("role") {
				in.Role = &role
			}
			if f.Changed("active") {
				in.IsActive = &active
			}
			u, err := s.AdminUpdateUser(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.printUsers([]models.User{u})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&role, "role", "", "admin or user")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the account may sign in (--active=false to deactivate)")
	return cmd
}

func (a *app) adminDeleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user ID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.AdminDeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "User deleted")
			return nil
		},
	}
}
