package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"taskboard/internal/models"
)

// TaskOptions holds flags for the tasks subcommands.
type TaskOptions struct {
	*RootOptions
	Assignee string

	Name           string
	Description    string
	Status         string
	Priority       string
	AssignedToID   string
	AssignedToName string
	DueDate        string
	CreatedByID    string
	CreatedByName  string
}

// NewTasksCommand creates the tasks command group.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, inspect and edit tasks",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List tasks, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTasks(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Assignee, "assignee", "", "only tasks assigned to this user id")

	get := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getTask(opts, args[0], cmd)
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long: `Create a task. Unset fields default to an empty description,
status "todo" and priority "medium".

Example:
  taskboard tasks create --name "Write report" --priority high --due 2026-11-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createTask(opts, cmd)
		},
	}
	opts.bindFields(create.Flags())

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a task",
		Long: `Update a task. Only the flags passed are written; every other field
keeps its stored value.

Example:
  taskboard tasks update 3f2c... --status completed`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateTask(opts, args[0], cmd)
		},
	}
	opts.bindFields(update.Flags())

	del := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteTask(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

func (o *TaskOptions) bindFields(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "name", "", "task name")
	fs.StringVar(&o.Description, "description", "", "task description")
	fs.StringVar(&o.Status, "status", "", "todo, in_progress or completed")
	fs.StringVar(&o.Priority, "priority", "", "low, medium or high")
	fs.StringVar(&o.AssignedToID, "assignee", "", "id of the assigned user")
	fs.StringVar(&o.AssignedToName, "assignee-name", "", "name of the assigned user")
	fs.StringVar(&o.DueDate, "due", "", "due date (YYYY-MM-DD)")
	fs.StringVar(&o.CreatedByID, "created-by", "", "id of the creating user")
	fs.StringVar(&o.CreatedByName, "created-by-name", "", "name of the creating user")
}

// patch returns the fields whose flags were passed.
func (o *TaskOptions) patch(fs *pflag.FlagSet) models.TaskPatch {
	var p models.TaskPatch
	set := func(name string, dst **string, v string) {
		if fs.Changed(name) {
			*dst = models.Ptr(v)
		}
	}
	set("name", &p.Name, o.Name)
	set("description", &p.Description, o.Description)
	set("status", &p.Status, o.Status)
	set("priority", &p.Priority, o.Priority)
	set("assignee", &p.AssignedToID, o.AssignedToID)
	set("assignee-name", &p.AssignedToName, o.AssignedToName)
	set("due", &p.DueDate, o.DueDate)
	set("created-by", &p.CreatedByID, o.CreatedByID)
	set("created-by-name", &p.CreatedByName, o.CreatedByName)
	return p
}

func listTasks(opts *TaskOptions, cmd *cobra.Command) error {
	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	var tasks []models.Task
	if opts.Assignee != "" {
		tasks, err = app.Tasks.ListAssignedTo(ctx, opts.Assignee)
	} else {
		err = app.TaskStore.FetchAll(ctx)
		tasks = app.TaskStore.Snapshot().Items
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list tasks", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(tasks, func(w io.Writer) { writeTaskTable(w, tasks) })
}

func getTask(opts *TaskOptions, id string, cmd *cobra.Command) error {
	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.TaskStore.FetchByID(cmd.Context(), id); err != nil {
		return WrapExitError(ExitFailure, "failed to get task", err)
	}

	task := app.TaskStore.Snapshot().Selected
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(task, func(w io.Writer) { writeTask(w, task) })
}

func createTask(opts *TaskOptions, cmd *cobra.Command) error {
	p := opts.patch(cmd.Flags())
	if err := p.Validate(true); err != nil {
		return WrapExitError(ExitFailure, "invalid task", err)
	}

	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.TaskStore.Create(cmd.Context(), p); err != nil {
		return WrapExitError(ExitFailure, "failed to create task", err)
	}

	items := app.TaskStore.Snapshot().Items
	task := &items[len(items)-1]
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(task, func(w io.Writer) { writeTask(w, task) })
}

func updateTask(opts *TaskOptions, id string, cmd *cobra.Command) error {
	p := opts.patch(cmd.Flags())
	if err := p.Validate(false); err != nil {
		return WrapExitError(ExitFailure, "invalid task", err)
	}

	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.TaskStore.FetchByID(ctx, id); err != nil {
		return WrapExitError(ExitFailure, "failed to get task", err)
	}
	if err := app.TaskStore.Update(ctx, id, p); err != nil {
		return WrapExitError(ExitFailure, "failed to update task", err)
	}

	task := app.TaskStore.Snapshot().Selected
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(task, func(w io.Writer) { writeTask(w, task) })
}

func deleteTask(opts *TaskOptions, id string, cmd *cobra.Command) error {
	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.TaskStore.Remove(cmd.Context(), id); err != nil {
		return WrapExitError(ExitFailure, "failed to delete task", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(map[string]string{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted task %s\n", id)
	})
}

func writeTaskTable(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPRIORITY\tDUE\tASSIGNEE")
	for i := range tasks {
		t := &tasks[i]
		due := t.DueDate
		if t.IsOverdue() {
			due += " (overdue)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Status, t.Priority, due, t.AssignedToName)
	}
	tw.Flush()
}

func writeTask(w io.Writer, t *models.Task) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Name)
	if t.Description != "" {
		fmt.Fprintf(w, "  %s\n", t.Description)
	}
	fmt.Fprintf(w, "  status:   %s\n", t.Status)
	fmt.Fprintf(w, "  priority: %s\n", t.Priority)
	if t.DueDate != "" {
		overdue := ""
		if t.IsOverdue() {
			overdue = " (overdue)"
		}
		fmt.Fprintf(w, "  due:      %s%s\n", t.DueDate, overdue)
	}
	if t.AssignedToID != "" {
		fmt.Fprintf(w, "  assignee: %s %s\n", t.AssignedToID, t.AssignedToName)
	}
	fmt.Fprintf(w, "  created:  %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  updated:  %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
}
