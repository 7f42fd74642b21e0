package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"taskboard/internal/models"
)

// UserOptions holds flags for the users subcommands.
type UserOptions struct {
	*RootOptions

	Name        string
	Description string
	Email       string
	Role        string
}

// NewUsersCommand creates the users command group.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, inspect and edit users",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List users, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUsers(opts, cmd)
		},
	}

	get := &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getUser(opts, args[0], cmd)
		},
	}

	create := &cobra.Command{
		Use:           "create",
		Short:         "Create a user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createUser(opts, cmd)
		},
	}
	opts.bindFields(create.Flags())

	update := &cobra.Command{
		Use:           "update <id>",
		Short:         "Update the given fields of a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateUser(opts, args[0], cmd)
		},
	}
	opts.bindFields(update.Flags())

	del := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteUser(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

func (o *UserOptions) bindFields(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "name", "", "user name")
	fs.StringVar(&o.Description, "description", "", "user description")
	fs.StringVar(&o.Email, "email", "", "email address")
	fs.StringVar(&o.Role, "role", "", "admin, member or viewer")
}

func (o *UserOptions) patch(fs *pflag.FlagSet) models.UserPatch {
	var p models.UserPatch
	if fs.Changed("name") {
		p.Name = models.Ptr(o.Name)
	}
	if fs.Changed("description") {
		p.Description = models.Ptr(o.Description)
	}
	if fs.Changed("email") {
		p.Email = models.Ptr(o.Email)
	}
	if fs.Changed("role") {
		p.Role = models.Ptr(o.Role)
	}
	return p
}

func listUsers(opts *UserOptions, cmd *cobra.Command) error {
	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.UserStore.FetchAll(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "failed to list users", err)
	}

	users := app.UserStore.Snapshot().Items
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(users, func(w io.Writer) {
		if len(users) == 0 {
			fmt.Fprintln(w, "No users.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
		}
		tw.Flush()
	})
}

func getUser(opts *UserOptions, id string, cmd *cobra.Command) error {
	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.UserStore.FetchByID(cmd.Context(), id); err != nil {
		return WrapExitError(ExitFailure, "failed to get user", err)
	}

	user := app.UserStore.Snapshot().Selected
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(user, func(w io.Writer) { writeUser(w, user) })
}

func createUser(opts *UserOptions, cmd *cobra.Command) error {
	p := opts.patch(cmd.Flags())
	if err := p.Validate(true); err != nil {
		return WrapExitError(ExitFailure, "invalid user", err)
	}

	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.UserStore.Create(cmd.Context(), p); err != nil {
		return WrapExitError(ExitFailure, "failed to create user", err)
	}

	items := app.UserStore.Snapshot().Items
	user := &items[len(items)-1]
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(user, func(w io.Writer) { writeUser(w, user) })
}

func updateUser(opts *UserOptions, id string, cmd *cobra.Command) error {
	p := opts.patch(cmd.Flags())
	if err := p.Validate(false); err != nil {
		return WrapExitError(ExitFailure, "invalid user", err)
	}

	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.UserStore.FetchByID(ctx, id); err != nil {
		return WrapExitError(ExitFailure, "failed to get user", err)
	}
	if err := app.UserStore.Update(ctx, id, p); err != nil {
		return WrapExitError(ExitFailure, "failed to update user", err)
	}

	user := app.UserStore.Snapshot().Selected
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(user, func(w io.Writer) { writeUser(w, user) })
}

func deleteUser(opts *UserOptions, id string, cmd *cobra.Command) error {
	app, err := opts.app()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.UserStore.Remove(cmd.Context(), id); err != nil {
		return WrapExitError(ExitFailure, "failed to delete user", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(map[string]string{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted user %s\n", id)
	})
}

func writeUser(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "%s  %s\n", u.ID, u.Name)
	if u.Description != "" {
		fmt.Fprintf(w, "  %s\n", u.Description)
	}
	if u.Email != "" {
		fmt.Fprintf(w, "  email: %s\n", u.Email)
	}
	fmt.Fprintf(w, "  role:  %s\n", u.Role)
}
