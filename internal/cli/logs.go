package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/me/logshack/internal/app"
	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/pkg/model"
)

func addFilterFlags(fs *pflag.FlagSet, f *model.LogFilter) {
	fs.StringVar(&f.Callsign, "callsign", "", "Only QSOs with this callsign (substring)")
	fs.StringVar(&f.Band, "band", "", "Only QSOs on this band, e.g. 20m")
	fs.StringVar(&f.Mode, "mode", "", "Only QSOs in this mode, e.g. CW")
}

func newDashboardCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show stats and the first page of your log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				return checkHealth(cmd)
			}
			if err := dispatch(cmd, app.EnterDashboard{}); err != nil {
				return err
			}
			st := rt.ctrl.Snapshot()
			printIdentity(cmd, st)
			fmt.Fprintln(cmd.OutOrStdout())
			r := renderer(cmd)
			r.Stats(st.Stats)
			fmt.Fprintln(cmd.OutOrStdout())
			r.LogPage(st.Logs, st.LogsPager)
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only check that the main and contest services answer")
	return cmd
}

func checkHealth(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	services := []struct {
		name string
		svc  client.Service
		url  string
	}{
		{"main", client.ServiceMain, rt.cfg.Server},
		{"contest", client.ServiceContest, rt.cfg.ContestBase()},
	}

	var failed error
	for _, s := range services {
		if err := rt.client.Health(cmd.Context(), s.svc); err != nil {
			fmt.Fprintf(out, "%-8s  %-40s  DOWN (%v)\n", s.name, s.url, err)
			failed = err
			continue
		}
		fmt.Fprintf(out, "%-8s  %-40s  ok\n", s.name, s.url)
	}
	if failed != nil {
		return reportedError{failed}
	}
	return nil
}

func newLogsCmd() *cobra.Command {
	var (
		page        int
		filter      model.LogFilter
		clearFilter bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List your QSOs, 50 per page",
		Long: "List your QSOs, 50 per page. Filter flags apply a new filter and start at " +
			"page 1; in the shell, later 'logs --page N' calls keep the applied filter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var apply *model.LogFilter
			switch {
			case clearFilter:
				apply = &model.LogFilter{}
			case f.Changed("callsign") || f.Changed("band") || f.Changed("mode"):
				apply = &filter
			}
			if apply != nil {
				if err := dispatch(cmd, app.FetchLogs{Page: 1, Filter: apply}); err != nil {
					return err
				}
			}
			if apply == nil || page > 1 {
				if err := dispatch(cmd, app.FetchLogs{Page: page}); err != nil {
					return err
				}
			}
			st := rt.ctrl.Snapshot()
			renderer(cmd).LogPage(st.Logs, st.LogsPager)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().BoolVar(&clearFilter, "clear-filter", false, "Drop the applied filter")
	addFilterFlags(cmd.Flags(), &filter)
	cmd.MarkFlagsMutuallyExclusive("clear-filter", "callsign")
	cmd.MarkFlagsMutuallyExclusive("clear-filter", "band")
	cmd.MarkFlagsMutuallyExclusive("clear-filter", "mode")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show QSO totals by band and mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.FetchStats{}); err != nil {
				return err
			}
			renderer(cmd).Stats(rt.ctrl.Snapshot().Stats)
			return nil
		},
	}
}

func newUploadCmd() *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an ADIF file using an API key",
		Long: "Upload an ADIF file. The API key comes from --api-key, the api_key config " +
			"setting or LOGSHACK_API_KEY, and is prompted for otherwise.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := apiKey
			if key == "" {
				key = rt.cfg.APIKey
			}
			key, err := secretOr(cmd, key, "API key")
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open ADIF file: %w", err)
			}
			defer f.Close()

			if err := dispatch(cmd, app.Upload{APIKey: key, Filename: filepath.Base(args[0]), Reader: f}); err != nil {
				return err
			}
			renderer(cmd).UploadResult(rt.ctrl.Snapshot().LastUpload)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Upload API key")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		dest   string
		filter model.LogFilter
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download your log as ADIF",
		Long: "Download your log as ADIF. --dest may be a file, a directory, s3://bucket/key " +
			"or - for standard output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.Export{Filter: filter, Dest: dest}
			if dest == "-" {
				c.To = cmd.OutOrStdout()
			}
			return dispatch(cmd, c)
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "o", ".", "Destination file, directory, s3:// URL or -")
	addFilterFlags(cmd.Flags(), &filter)
	return cmd
}

func newUploadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uploads",
		Short: "Show your upload history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.FetchUploads{}); err != nil {
				return err
			}
			renderer(cmd).Uploads(rt.ctrl.Snapshot().Uploads)
			return nil
		},
	}
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage upload API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.ListKeys{}); err != nil {
				return err
			}
			renderer(cmd).APIKeys(rt.ctrl.Snapshot().Keys)
			return nil
		},
	})

	var description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.CreateKey{Description: description}); err != nil {
				return err
			}
			st := rt.ctrl.Snapshot()
			r := renderer(cmd)
			r.CreatedKey(st.NewKey)
			fmt.Fprintln(cmd.OutOrStdout())
			r.APIKeys(st.Keys)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "What the key is for")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.DeleteKey{ID: id}); err != nil {
				return err
			}
			renderer(cmd).APIKeys(rt.ctrl.Snapshot().Keys)
			return nil
		},
	})

	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
