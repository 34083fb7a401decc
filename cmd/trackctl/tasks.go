package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func parseDue(s string) (*time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("due date %q: want YYYY-MM-DD", s)
	}
	return &d, nil
}

func (a *app) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List and manage tasks",
	}
	cmd.AddCommand(
		a.tasksListCmd(),
		a.tasksShowCmd(),
		a.tasksCreateCmd(),
		a.tasksUpdateCmd(),
		a.tasksDeleteCmd(),
		a.tasksCommentCmd(),
	)
	return cmd
}

func (a *app) tasksListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the current project's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if all {
				return a.printTasks(s.AllTasks())
			}
			if _, ok := s.CurrentProject(); !ok {
				return fmt.Errorf("no project selected; use --all or `trackctl projects select`")
			}
			return a.printTasks(s.Tasks())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List tasks across every project")
	return cmd
}

func (a *app) tasksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a task with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			t, ok := s.Task(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			return a.printTask(t)
		},
	}
}

func (a *app) tasksCreateCmd() *cobra.Command {
	var in coordinator.CreateTaskInput
	var project, due, labels string
	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create a task in the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if in.Project, err = projectRef(s, project); err != nil {
				return err
			}
			in.Title = args[0]
			in.Labels = splitTags(labels)
			if due != "" {
				if in.DueDate, err = parseDue(due); err != nil {
					return err
				}
			}
			t, err := s.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printTask(t)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project id or key (default: current)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Status, "status", "", "todo, in-progress, review or done")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "lowest, low, medium, high or highest")
	cmd.Flags().StringVar(&in.Type, "type", "", "story, task, bug or epic")
	cmd.Flags().StringVar(&in.Assignee, "assignee", "", "Assignee user id")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&labels, "labels", "", "Comma-separated labels")
	return cmd
}

func (a *app) tasksUpdateCmd() *cobra.Command {
	var title, description, status, priority, typ, assignee, due, labels string
	var unassign, noDue bool
	var estimate, actual float64
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			var in coordinator.UpdateTaskInput
			f := cmd.Flags()
			if f.Changed("title") {
				in.Title = &title
			}
			if f.Changed("description") {
				in.Description = &description
			}
			if f.Changed("status") {
				in.Status = &status
			}
			if f.Changed("priority") {
				in.Priority = &priority
			}
			if f.Changed("type") {
				in.Type = &typ
			}
			switch {
			case unassign:
				empty := ""
				in.Assignee = &empty
			case f.Changed("assignee"):
				in.Assignee = &assignee
			}
			switch {
			case noDue:
				in.ClearDueDate = true
			case due != "":
				if in.DueDate, err = parseDue(due); err != nil {
					return err
				}
			}
			if f.Changed("estimate") {
				in.EstimatedHours = &estimate
			}
			if f.Changed("actual") {
				in.ActualHours = &actual
			}
			if f.Changed("labels") {
				l := splitTags(labels)
				in.Labels = &l
			}
			t, err := s.UpdateTask(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.printTask(t)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "todo, in-progress, review or done")
	cmd.Flags().StringVar(&priority, "priority", "", "lowest, low, medium, high or highest")
	cmd.Flags().StringVar(&typ, "type", "", "story, task, bug or epic")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user id")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "Clear the assignee")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noDue, "no-due", false, "Clear the due date")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "Estimated hours")
	cmd.Flags().Float64Var(&actual, "actual", 0, "Actual hours")
	cmd.Flags().StringVar(&labels, "labels", "", "Comma-separated labels (replaces the list)")
	return cmd
}

func (a *app) tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Task deleted")
			return nil
		},
	}
}

func (a *app) tasksCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment ID TEXT...",
		Short: "Add a comment to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			t, err := s.AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.printTask(t)
		},
	}
}
