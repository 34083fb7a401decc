package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dalemusser/trackhub/internal/domain/models"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints rows under a header, tab-aligned.
func (a *app) table(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}

func (a *app) printProjects(list []models.ProjectView, current string) error {
	if a.asJSON {
		return a.printJSON(list)
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		mark := ""
		if p.ID.Hex() == current {
			mark = "*"
		}
		rows = append(rows, []string{mark, p.Key, p.Name, p.Status, p.Owner.Name, fmt.Sprint(len(p.Members)), p.ID.Hex()})
	}
	return a.table([]string{"", "KEY", "NAME", "STATUS", "OWNER", "MEMBERS", "ID"}, rows)
}

func (a *app) printProject(p models.ProjectView) error {
	if a.asJSON {
		return a.printJSON(p)
	}
	fmt.Fprintf(a.out, "%s  %s  [%s, %s]\n", p.Key, p.Name, p.Status, p.Visibility)
	if p.Description != "" {
		fmt.Fprintln(a.out, p.Description)
	}
	rows := make([][]string, 0, len(p.Members))
	for _, m := range p.Members {
		rows = append(rows, []string{m.User.Name, m.User.Email, m.Role, m.User.ID.Hex()})
	}
	return a.table([]string{"MEMBER", "EMAIL", "ROLE", "ID"}, rows)
}

func assigneeName(t models.TaskView) string {
	if t.Assignee == nil {
		return "-"
	}
	return t.Assignee.Name
}

func (a *app) printTasks(list []models.TaskView) error {
	if a.asJSON {
		return a.printJSON(list)
	}
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{t.Project.Key, t.Title, t.Status, t.Priority, t.Type, assigneeName(t), t.ID.Hex()})
	}
	return a.table([]string{"PROJECT", "TITLE", "STATUS", "PRIORITY", "TYPE", "ASSIGNEE", "ID"}, rows)
}

func (a *app) printTask(t models.TaskView) error {
	if a.asJSON {
		return a.printJSON(t)
	}
	fmt.Fprintf(a.out, "%s  %s  [%s, %s, %s]\n", t.Project.Key, t.Title, t.Status, t.Priority, t.Type)
	fmt.Fprintf(a.out, "reporter: %s  assignee: %s  id: %s\n", t.Reporter.Name, assigneeName(t), t.ID.Hex())
	for _, c := range t.Comments {
		fmt.Fprintf(a.out, "  %s: %s\n", c.Author.Name, c.Content)
	}
	return nil
}

func (a *app) printUsers(list []models.User) error {
	if a.asJSON {
		return a.printJSON(list)
	}
	rows := make([][]string, 0, len(list))
	for _, u := range list {
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		rows = append(rows, []string{u.Name, u.Email, u.Role, active, u.ID.Hex()})
	}
	return a.table([]string{"NAME", "EMAIL", "ROLE", "ACTIVE", "ID"}, rows)
}
