// Command todo manages a to-do list on a running todo-server from the
// terminal. Every invocation logs in, does one thing, and logs out.
//
//	todo register --name Ann
//	todo add Buy milk
//	todo list
//	todo done 3
//	todo rm 3
//
// Credentials come from --email/--password or TODO_EMAIL/TODO_PASSWORD.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/todo-list/internal/client"
	"github.com/sakif/todo-list/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "todo",
	Short:         "Command-line client for the to-do list service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.cancel()
		if err := s.ctrl.Register(cmd.Context(), s.email, s.password, name); err != nil {
			return err
		}
		defer s.close(cmd.Context())

		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", s.ctrl.State().User.Name, s.email)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show your todos, newest first",
	Args:    cobra.NoArgs,
	RunE: withLogin(func(cmd *cobra.Command, ctrl *client.Controller, args []string) error {
		printItems(cmd.OutOrStdout(), ctrl.State().Items)
		return nil
	}),
}

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE: withLogin(func(cmd *cobra.Command, ctrl *client.Controller, args []string) error {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			return errors.New("todo text is required")
		}
		if err := ctrl.Add(cmd.Context(), text); err != nil {
			return err
		}
		added := ctrl.State().Items[0]
		fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s\n", added.ID, added.Text)
		return nil
	}),
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a todo as completed",
	Args:  cobra.ExactArgs(1),
	RunE:  withLogin(setCompleted(true)),
}

var undoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a todo as not completed",
	Args:  cobra.ExactArgs(1),
	RunE:  withLogin(setCompleted(false)),
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Change a todo's text",
	Args:  cobra.MinimumNArgs(2),
	RunE: withLogin(func(cmd *cobra.Command, ctrl *client.Controller, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		return ctrl.Update(cmd.Context(), id, model.TodoPatch{Text: &text})
	}),
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE: withLogin(func(cmd *cobra.Command, ctrl *client.Controller, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return ctrl.Delete(cmd.Context(), id)
	}),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("server", envOr("TODO_SERVER", "http://localhost:3000"), "server base URL")
	pf.String("email", os.Getenv("TODO_EMAIL"), "account email")
	pf.String("password", os.Getenv("TODO_PASSWORD"), "account password")
	pf.Duration("timeout", 15*time.Second, "per-request timeout")
	pf.Bool("verbose", false, "log client errors to stderr")

	registerCmd.Flags().String("name", "", "display name")
	_ = registerCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(registerCmd, listCmd, addCmd, doneCmd, undoCmd, editCmd, rmCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// session is one logged-in CLI invocation.
type session struct {
	ctrl     *client.Controller
	email    string
	password string
	cancel   context.CancelFunc
}

func newSession(cmd *cobra.Command) (*session, error) {
	serverURL, _ := cmd.Flags().GetString("server")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if email == "" || password == "" {
		return nil, errors.New("email and password are required (--email/--password or TODO_EMAIL/TODO_PASSWORD)")
	}

	c, err := client.New(serverURL, nil)
	if err != nil {
		return nil, err
	}

	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(w, nil))

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	cmd.SetContext(ctx)

	return &session{
		ctrl:     client.NewController(c, log),
		email:    email,
		password: password,
		cancel:   cancel,
	}, nil
}

func (s *session) close(ctx context.Context) {
	// Logging out only tidies the server's session table.
	_ = s.ctrl.Logout(ctx)
}

// withLogin logs in before run and out after it.
func withLogin(run func(*cobra.Command, *client.Controller, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.cancel()
		if err := s.ctrl.Login(cmd.Context(), s.email, s.password); err != nil {
			return err
		}
		defer s.close(cmd.Context())
		return run(cmd, s.ctrl, args)
	}
}

func setCompleted(completed bool) func(*cobra.Command, *client.Controller, []string) error {
	return func(cmd *cobra.Command, ctrl *client.Controller, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return ctrl.Update(cmd.Context(), id, model.TodoPatch{Completed: &completed})
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", s)
	}
	return id, nil
}

func printItems(w io.Writer, items []model.Todo) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing to do.")
		return
	}
	for _, t := range items {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] #%-4d %s\n", mark, t.ID, t.Text)
	}
}
