package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/logshack/internal/app"
)

func newLoginCmd() *cobra.Command {
	var password, code string

	cmd := &cobra.Command{
		Use:   "login [CALLSIGN]",
		Short: "Log in to LogShackBaby",
		Long:  "Log in with callsign and password. Accounts with MFA are asked for their authenticator code.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callsign string
			if len(args) == 1 {
				callsign = args[0]
			}
			callsign, err := lineOr(cmd, callsign, "Callsign")
			if err != nil {
				return err
			}
			password, err := secretOr(cmd, password, "Password")
			if err != nil {
				return err
			}

			if err := dispatch(cmd, app.Login{Callsign: callsign, Password: password}); err != nil {
				return err
			}

			if rt.ctrl.Snapshot().Screen == app.ScreenMFA {
				code, err := lineOr(cmd, code, "MFA code")
				if err != nil {
					return err
				}
				if err := dispatch(cmd, app.VerifyMFA{Code: code}); err != nil {
					return err
				}
			}

			printIdentity(cmd, rt.ctrl.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&code, "code", "", "MFA code (prompted if required and omitted)")
	return cmd
}

// newVerifyCmd completes an MFA login started in the same shell session.
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify CODE",
		Short: "Complete a pending MFA login (shell only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.VerifyMFA{Code: args[0]}); err != nil {
				return err
			}
			printIdentity(cmd, rt.ctrl.Snapshot())
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var email, password, confirm string

	cmd := &cobra.Command{
		Use:   "register CALLSIGN",
		Short: "Create a LogShackBaby account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := lineOr(cmd, email, "Email")
			if err != nil {
				return err
			}
			password, err := secretOr(cmd, password, "Password")
			if err != nil {
				return err
			}
			confirm, err := secretOr(cmd, confirm, "Confirm password")
			if err != nil {
				return err
			}
			return dispatch(cmd, app.Register{Callsign: args[0], Email: email, Password: password, Confirm: confirm})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, app.Logout{})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in callsign, role and available commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := rt.ctrl.Snapshot()
			if !st.Session.Valid() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err := dispatch(cmd, app.EnterDashboard{}); err != nil {
				return err
			}
			printIdentity(cmd, rt.ctrl.Snapshot())
			return nil
		},
	}
}

func printIdentity(cmd *cobra.Command, st app.State) {
	out := cmd.OutOrStdout()
	if !st.Session.Valid() {
		return
	}
	callsign := st.Session.Callsign
	if callsign == "" {
		callsign = "(unknown)"
	}
	fmt.Fprintf(out, "Logged in as %s (%s)\n", callsign, st.Session.Role)
	if st.MFAEnabled {
		fmt.Fprintln(out, "MFA: enabled")
	}
	surfaces := make([]string, 0, st.Surfaces.Len())
	for _, s := range st.Surfaces.List() {
		surfaces = append(surfaces, string(s))
	}
	fmt.Fprintf(out, "Available: %s\n", strings.Join(surfaces, ", "))
}

func newPasswordCmd() *cobra.Command {
	var current, next, confirm string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := secretOr(cmd, current, "Current password")
			if err != nil {
				return err
			}
			next, err := secretOr(cmd, next, "New password")
			if err != nil {
				return err
			}
			confirm, err := secretOr(cmd, confirm, "Confirm new password")
			if err != nil {
				return err
			}
			return dispatch(cmd, app.ChangePassword{Current: current, New: next, Confirm: confirm})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password (prompted if omitted)")
	cmd.Flags().StringVar(&next, "new", "", "New password (prompted if omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "New password again (prompted if omitted)")
	return cmd
}

func newMFACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage two-factor authentication",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Generate an authenticator secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.SetupMFA{}); err != nil {
				return err
			}
			renderer(cmd).MFASetup(rt.ctrl.Snapshot().MFASetup)
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'logshack mfa enable CODE' with a code from your app to finish.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable CODE",
		Short: "Enable MFA after setup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, app.EnableMFA{Code: args[0]})
		},
	})

	var password string
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Disable MFA",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := secretOr(cmd, password, "Password")
			if err != nil {
				return err
			}
			return dispatch(cmd, app.DisableMFA{Password: password})
		},
	}
	disable.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.AddCommand(disable)

	return cmd
}
