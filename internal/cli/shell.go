package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: run commands without re-reading state",
		Long: "Start an interactive prompt. Every logshack command works here without the " +
			"leading 'logshack'. A pending MFA login survives between lines, so 'verify CODE' " +
			"can follow 'login'. Type exit or quit to leave.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.shell {
				return errors.New("already in a shell")
			}
			rt.shell = true
			defer func() { rt.shell = false }()
			return runShell(cmd)
		},
	}
}

func runShell(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.ErrOrStderr()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, shellPrompt())

		line, err := rt.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}

		args, perr := shlex.Split(line)
		if perr != nil {
			fmt.Fprintln(out, "Error:", perr)
			continue
		}
		if len(args) == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(out, "Error: already in a shell")
			continue
		}

		sub := NewRootCmd()
		sub.SetArgs(args)
		sub.SetIn(cmd.InOrStdin())
		sub.SetOut(cmd.OutOrStdout())
		sub.SetErr(cmd.ErrOrStderr())
		if xerr := sub.ExecuteContext(ctx); xerr != nil {
			var shown reportedError
			if !errors.As(xerr, &shown) {
				fmt.Fprintln(out, "Error:", xerr)
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func shellPrompt() string {
	st := rt.ctrl.Snapshot()
	if st.Session.Valid() && st.Session.Callsign != "" {
		return "logshack " + st.Session.Callsign + "> "
	}
	return "logshack> "
}
