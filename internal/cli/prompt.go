package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Replaced in tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// terminalFd returns the descriptor of the command's input when it is a TTY.
func terminalFd(cmd *cobra.Command) (int, bool) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, isTerminal(fd)
}

// promptLine asks for a visible value.
func promptLine(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := rt.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret asks for a value without echoing it when stdin is a terminal.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	fd, tty := terminalFd(cmd)
	if !tty {
		return promptLine(cmd, label)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	b, err := readPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}

// secretOr returns v, prompting for it when empty.
func secretOr(cmd *cobra.Command, v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return promptSecret(cmd, label)
}

// lineOr returns v, prompting for it when empty.
func lineOr(cmd *cobra.Command, v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return promptLine(cmd, label)
}
