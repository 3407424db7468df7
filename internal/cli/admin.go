package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/me/logshack/internal/app"
	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage user accounts (sysop)",
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.ListAdminUsers{}); err != nil {
				return err
			}
			renderer(cmd).Users(rt.ctrl.Snapshot().Users)
			return nil
		},
	}

	cmd.AddCommand(users, newAdminCreateCmd(), newAdminUpdateCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an account and its logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.DeleteAdminUser{ID: id}); err != nil {
				return err
			}
			renderer(cmd).Users(rt.ctrl.Snapshot().Users)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset-password ID",
		Short: "Issue a temporary password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.ResetUserPassword{ID: id}); err != nil {
				return err
			}
			if reset := rt.ctrl.Snapshot().LastReset; reset != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Temporary password: %s\n", reset.TemporaryPassword)
			}
			return nil
		},
	})

	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var email, role, password string

	cmd := &cobra.Command{
		Use:   "create CALLSIGN",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := secretOr(cmd, password, "Password")
			if err != nil {
				return err
			}
			in := model.UserInput{
				Callsign: args[0],
				Email:    email,
				Password: password,
				Role:     model.Role(strings.ToLower(role)),
			}
			if err := dispatch(cmd, app.CreateAdminUser{Input: in}); err != nil {
				return err
			}
			renderer(cmd).Users(rt.ctrl.Snapshot().Users)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "Role: user, contestadmin, logadmin or sysop")
	cmd.Flags().StringVar(&password, "password", "", "Initial password (prompted if omitted)")
	return cmd
}

func newAdminUpdateCmd() *cobra.Command {
	var (
		email, role, password string
		active, inactive      bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change an account's email, role, password or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if active && inactive {
				return fmt.Errorf("--active and --inactive are mutually exclusive")
			}
			in := model.UserInput{
				Email:    email,
				Password: password,
				Role:     model.Role(strings.ToLower(role)),
			}
			if active || inactive {
				in.IsActive = &active
			}
			if err := dispatch(cmd, app.UpdateAdminUser{ID: id, Input: in}); err != nil {
				return err
			}
			renderer(cmd).Users(rt.ctrl.Snapshot().Users)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&role, "role", "", "New role")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().BoolVar(&active, "active", false, "Reactivate the account")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Deactivate the account")
	return cmd
}

// scopeFlag registers --scope on cmd, defaulting to the log admin API.
func scopeFlag(cmd *cobra.Command, scope *string) {
	cmd.Flags().StringVar(scope, "scope", string(model.ScopeLogAdmin), "Admin API: logadmin or contestadmin")
}

func addReportFilterFlags(fs *pflag.FlagSet, f *model.ReportFilters) {
	fs.StringVar(&f.DateFrom, "from", "", "First QSO date, YYYY-MM-DD")
	fs.StringVar(&f.DateTo, "to", "", "Last QSO date, YYYY-MM-DD")
	fs.StringSliceVar(&f.Bands, "band", nil, "Only these bands (repeatable or comma separated)")
	fs.StringSliceVar(&f.Modes, "mode", nil, "Only these modes")
	fs.Int64SliceVar(&f.UserIDs, "user", nil, "Only these user IDs")
}

func printReport(cmd *cobra.Command, rep *model.Report, asCSV bool) error {
	if asCSV {
		return view.ReportCSV(cmd.OutOrStdout(), rep)
	}
	renderer(cmd).Report(rep)
	return nil
}

func newLogAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logadmin",
		Short: "Inspect other operators' logs and build reports",
	}

	var usersScope string
	users := &cobra.Command{
		Use:   "users",
		Short: "List accounts with their QSO counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.ListLogAdminUsers{Scope: model.ReportScope(usersScope)}); err != nil {
				return err
			}
			renderer(cmd).LogAdminUsers(rt.ctrl.Snapshot().ScopeUsers)
			return nil
		},
	}
	scopeFlag(users, &usersScope)

	var (
		logsScope string
		page      int
	)
	logs := &cobra.Command{
		Use:   "logs USERID",
		Short: "Browse one operator's QSOs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c := app.FetchUserLogs{Scope: model.ReportScope(logsScope), UserID: id, Page: page}
			if err := dispatch(cmd, c); err != nil {
				return err
			}
			st := rt.ctrl.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", st.UserLogs.User.Callsign)
			r := renderer(cmd)
			r.Logs(st.UserLogs.Logs)
			r.Pager(st.UserLogsPager)
			return nil
		},
	}
	scopeFlag(logs, &logsScope)
	logs.Flags().IntVarP(&page, "page", "p", 1, "Page number")

	reset := &cobra.Command{
		Use:   "reset USERID",
		Short: "Delete every QSO of an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.ResetUserLogs{UserID: id}); err != nil {
				return err
			}
			renderer(cmd).LogAdminUsers(rt.ctrl.Snapshot().ScopeUsers)
			return nil
		},
	}

	var fieldsScope string
	fields := &cobra.Command{
		Use:   "fields",
		Short: "List report fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.FetchReportFields{Scope: model.ReportScope(fieldsScope)}); err != nil {
				return err
			}
			renderer(cmd).Fields(rt.ctrl.Snapshot().Fields)
			return nil
		},
	}
	scopeFlag(fields, &fieldsScope)

	var (
		reportScope string
		reportCols  []string
		filters     model.ReportFilters
		asCSV       bool
	)
	report := &cobra.Command{
		Use:   "report",
		Short: "Generate a cross-operator report",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.GenerateReport{Scope: model.ReportScope(reportScope), Fields: reportCols, Filters: filters}
			if err := dispatch(cmd, c); err != nil {
				return err
			}
			return printReport(cmd, rt.ctrl.Snapshot().Report, asCSV)
		},
	}
	scopeFlag(report, &reportScope)
	report.Flags().StringSliceVar(&reportCols, "fields", nil, "Columns to include, e.g. call,band,mode")
	report.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of a table")
	addReportFilterFlags(report.Flags(), &filters)

	cmd.AddCommand(users, logs, reset, fields, report)
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage saved report templates (contest admins)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.ListTemplates{}); err != nil {
				return err
			}
			renderer(cmd).Templates(rt.ctrl.Snapshot().Templates)
			return nil
		},
	})

	var (
		tpl       model.ReportTemplate
		shareWith string
	)
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Save a report template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := tpl
			t.Name = args[0]
			t.SharedWithRole = model.Role(strings.ToLower(shareWith))
			if err := dispatch(cmd, app.SaveTemplate{Template: t}); err != nil {
				return err
			}
			renderer(cmd).Templates(rt.ctrl.Snapshot().Templates)
			return nil
		},
	}
	create.Flags().StringSliceVar(&tpl.Fields, "fields", nil, "Columns to include")
	create.Flags().StringVar(&tpl.Description, "description", "", "Description")
	create.Flags().BoolVar(&tpl.IsGlobal, "global", false, "Visible to every contest admin")
	create.Flags().StringVar(&shareWith, "share-with", "", "Share with a role")
	addReportFilterFlags(create.Flags(), &tpl.Filters)
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.DeleteTemplate{ID: id}); err != nil {
				return err
			}
			renderer(cmd).Templates(rt.ctrl.Snapshot().Templates)
			return nil
		},
	})

	var asCSV bool
	run := &cobra.Command{
		Use:   "run ID",
		Short: "Run a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.RunTemplate{ID: id}); err != nil {
				return err
			}
			return printReport(cmd, rt.ctrl.Snapshot().Report, asCSV)
		},
	}
	run.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of a table")
	cmd.AddCommand(run)

	return cmd
}
