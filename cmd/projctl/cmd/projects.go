package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// projectFlags holds the editable fields shared by create and update.
type projectFlags struct {
	title       string
	description string
	tasks       []string
	userID      string
	assignDate  string
	dueDate     string
	startDate   string
	endDate     string
	status      string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.title, "title", "t", "", "project title")
	fs.StringVarP(&f.description, "description", "d", "", "project description")
	fs.StringArrayVar(&f.tasks, "task", nil, "task (repeat for several)")
	fs.StringVar(&f.userID, "user", "", "owner tag (default: your username)")
	fs.StringVar(&f.assignDate, "assign", "", "assign date (YYYY-MM-DD)")
	fs.StringVar(&f.dueDate, "due", "", "due date (YYYY-MM-DD)")
	fs.StringVar(&f.startDate, "start", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&f.endDate, "end", "", "end date (YYYY-MM-DD)")
	fs.StringVar(&f.status, "status", "", "status (ongoing, pending, complete)")
}

func parseFlagDate(name, value string) (models.Date, error) {
	d, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func taskList(tasks []string) []models.Task {
	list := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t = strings.TrimSpace(t); t != "" {
			list = append(list, models.Task{Task: t})
		}
	}
	return list
}

// input converts the flags into a create request.
func (f *projectFlags) input() (tracker.ProjectInput, error) {
	in := tracker.ProjectInput{
		Title:       f.title,
		Description: f.description,
		TaskList:    taskList(f.tasks),
		UserID:      f.userID,
		Status:      models.ProjectStatus(f.status),
	}
	dates := []struct {
		flag  string
		value string
		dst   *models.Date
	}{
		{"assign", f.assignDate, &in.AssignDate},
		{"due", f.dueDate, &in.DueDate},
		{"start", f.startDate, &in.StartDate},
		{"end", f.endDate, &in.EndDate},
	}
	for _, d := range dates {
		if d.value == "" {
			return in, fmt.Errorf("--%s is required", d.flag)
		}
		parsed, err := parseFlagDate(d.flag, d.value)
		if err != nil {
			return in, err
		}
		*d.dst = parsed
	}
	return in, nil
}

// patch converts the flags the user actually set into an update request.
func (f *projectFlags) patch(changed func(name string) bool) (tracker.ProjectPatch, error) {
	var p tracker.ProjectPatch
	if changed("title") {
		p.Title = &f.title
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("task") {
		tasks := taskList(f.tasks)
		p.TaskList = &tasks
	}
	if changed("user") {
		p.UserID = &f.userID
	}
	if changed("status") {
		status := models.ProjectStatus(f.status)
		p.Status = &status
	}
	dates := []struct {
		flag  string
		value string
		dst   **models.Date
	}{
		{"assign", f.assignDate, &p.AssignDate},
		{"due", f.dueDate, &p.DueDate},
		{"start", f.startDate, &p.StartDate},
		{"end", f.endDate, &p.EndDate},
	}
	for _, d := range dates {
		if !changed(d.flag) {
			continue
		}
		parsed, err := parseFlagDate(d.flag, d.value)
		if err != nil {
			return p, err
		}
		*d.dst = &parsed
	}
	if p.Empty() {
		return p, fmt.Errorf("nothing to update (set at least one field flag)")
	}
	return p, nil
}

// parseRetitle parses ID=TITLE[:STATUS]. The suffix after the last colon is
// taken as the status only when it names one.
func parseRetitle(arg string) (update models.TitleUpdate, err error) {
	id, rest, ok := strings.Cut(arg, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return update, fmt.Errorf("%q: want ID=TITLE[:STATUS]", arg)
	}
	title := rest
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if status := models.ProjectStatus(strings.TrimSpace(rest[i+1:])); status.Valid() {
			title = rest[:i]
			update.Status = status
		}
	}
	update.ID = id
	update.Title = strings.TrimSpace(title)
	if update.Title == "" {
		return update, fmt.Errorf("%q: title is empty", arg)
	}
	return update, nil
}

var (
	listSort   string
	listDesc   bool
	createOpts projectFlags
	updateOpts projectFlags
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project", "p"},
	Short:   "Project commands",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long: `List every project with its dates and status.

Sorting happens locally; --sort accepts title, assignDate, endDate or status.

Example:
  projctl projects list --sort endDate --desc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		titles, err := c.ListTitles(context.Background())
		if err != nil {
			return err
		}
		if err := models.SortTitles(titles, listSort, listDesc); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), titles)
		}
		return writeTitles(cmd.OutOrStdout(), titles)
	},
}

func writeTitles(out io.Writer, titles []*models.ProjectTitle) error {
	if len(titles) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tASSIGNED\tENDS\tSTATUS")
	for _, t := range titles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, truncate(t.Title, 40), t.AssignDate, t.EndDate, t.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %d project(s)\n", len(titles))
	return nil
}

var projectsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.Project(context.Background(), args[0])
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), p)
		}
		writeProject(cmd.OutOrStdout(), p)
		return nil
	},
}

func writeProject(out io.Writer, p *models.Project) {
	fmt.Fprintf(out, "ID:          %s\n", p.ID)
	fmt.Fprintf(out, "Title:       %s\n", p.Title)
	fmt.Fprintf(out, "Description: %s\n", p.Description)
	fmt.Fprintf(out, "Owner:       %s\n", p.UserID)
	fmt.Fprintf(out, "Status:      %s\n", p.Status)
	fmt.Fprintf(out, "Assigned:    %s\n", p.AssignDate)
	fmt.Fprintf(out, "Due:         %s\n", p.DueDate)
	fmt.Fprintf(out, "Started:     %s\n", p.StartDate)
	fmt.Fprintf(out, "Ends:        %s\n", p.EndDate)
	fmt.Fprintf(out, "Tasks:\n")
	if len(p.TaskList) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for i, t := range p.TaskList {
		fmt.Fprintf(out, "  %d. %s\n", i+1, t.Task)
	}
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Long: `Create a project. Every role may create projects.

Example:
  projctl projects create --title Website --description "Company site" \
    --task design --task build --assign 2024-01-01 --due 2024-03-01 \
    --start 2024-01-08 --end 2024-02-28`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := createOpts.input()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.CreateProject(context.Background(), in)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project created successfully: %s (%s)\n", p.Title, p.ID)
		return nil
	},
}

var projectsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update fields of a project (admin and manager only)",
	Long: `Update the fields given as flags and leave the rest untouched.
Passing --task replaces the whole task list.

Example:
  projctl projects update 64f0c1 --status complete --end 2024-02-20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := updateOpts.patch(cmd.Flags().Changed)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.UpdateProject(context.Background(), args[0], patch)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Project updated successfully")
		writeProject(cmd.OutOrStdout(), p)
		return nil
	},
}

var projectsRetitleCmd = &cobra.Command{
	Use:   "retitle ID=TITLE[:STATUS]...",
	Short: "Rename projects and set their status in one batch (admin and manager only)",
	Long: `Apply several title and status changes at once. Each item succeeds or
fails on its own; the command reports every item.

When :STATUS is omitted the current status is kept.

Example:
  projctl projects retitle 64f0c1=Website:complete 64f0c2="Mobile app"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := make([]models.TitleUpdate, 0, len(args))
		for _, arg := range args {
			u, err := parseRetitle(arg)
			if err != nil {
				return err
			}
			updates = append(updates, u)
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.UpdateTitles(context.Background(), updates)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), result)
		}
		writeBatch(cmd.OutOrStdout(), result)
		if !result.AllUpdated() {
			return fmt.Errorf("%d of %d updates failed", result.Failed, len(result.Results))
		}
		return nil
	},
}

func writeBatch(out io.Writer, result *tracker.BatchResult) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	for _, r := range result.Results {
		if r.Outcome == tracker.OutcomeUpdated {
			ok.Fprintf(out, "  %-26s %s\n", r.ID, r.Outcome)
			continue
		}
		bad.Fprintf(out, "  %-26s %s: %s\n", r.ID, r.Outcome, r.Message)
	}
	fmt.Fprintf(out, "%d updated, %d failed\n", result.Updated, result.Failed)
}

func init() {
	projectsListCmd.Flags().StringVar(&listSort, "sort", "", "sort by title, assignDate, endDate or status")
	projectsListCmd.Flags().BoolVar(&listDesc, "desc", false, "sort descending")

	createOpts.register(projectsCreateCmd)
	updateOpts.register(projectsUpdateCmd)

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsGetCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsUpdateCmd)
	projectsCmd.AddCommand(projectsRetitleCmd)
	rootCmd.AddCommand(projectsCmd)
}
