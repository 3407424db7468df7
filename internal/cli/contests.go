package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/logshack/internal/app"
	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/pkg/model"
)

func newContestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contests",
		Short: "Browse and manage contests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List contests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dispatch(cmd, app.ListContests{}); err != nil {
				return err
			}
			renderer(cmd).Contests(rt.ctrl.Snapshot().Contests)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show one contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.GetContest{ID: id}); err != nil {
				return err
			}
			renderer(cmd).Contest(rt.ctrl.Snapshot().Contest)
			return nil
		},
	})

	cmd.AddCommand(newContestSaveCmd(false), newContestSaveCmd(true))

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a contest and its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := dispatch(cmd, app.DeleteContest{ID: id}); err != nil {
				return err
			}
			renderer(cmd).Contests(rt.ctrl.Snapshot().Contests)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "populate ID",
		Short: "Score every operator's QSOs into a contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return dispatch(cmd, app.PopulateContest{ID: id})
		},
	})

	return cmd
}

// newContestSaveCmd builds "create" or, when update is set, "update ID".
// Update starts from the stored contest so only changed flags are replaced.
func newContestSaveCmd(update bool) *cobra.Command {
	var (
		in       client.ContestInput
		inactive bool
		bandMult map[string]string
		modeBon  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contest",
		Args:  cobra.NoArgs,
	}
	if update {
		cmd.Use = "update ID"
		cmd.Short = "Change a contest"
		cmd.Args = cobra.ExactArgs(1)
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var id int64
		next := in
		next.IsActive = !inactive
		if update {
			var err error
			if id, err = parseID(args[0]); err != nil {
				return err
			}
			if err := dispatch(cmd, app.GetContest{ID: id}); err != nil {
				return err
			}
			next = mergeContest(cmd, contestInput(rt.ctrl.Snapshot().Contest), in, inactive)
		}

		var err error
		if next.Scoring.BandMultiplier, err = parseWeights("band-mult", bandMult, next.Scoring.BandMultiplier); err != nil {
			return err
		}
		if next.Scoring.ModeBonus, err = parseWeights("mode-bonus", modeBon, next.Scoring.ModeBonus); err != nil {
			return err
		}

		if err := dispatch(cmd, app.SaveContest{ID: id, Input: next}); err != nil {
			return err
		}
		renderer(cmd).Contests(rt.ctrl.Snapshot().Contests)
		return nil
	}

	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "Contest name")
	f.StringVar(&in.Description, "description", "", "Description")
	f.StringVar(&in.StartDate, "start", "", "Start, YYYY-MM-DD or RFC 3339")
	f.StringVar(&in.EndDate, "end", "", "End, YYYY-MM-DD or RFC 3339")
	f.Float64Var(&in.Scoring.QSOPoints, "qso-points", 1, "Points per QSO")
	f.StringToStringVar(&bandMult, "band-mult", nil, "Band multipliers, e.g. 20m=2,40m=1.5")
	f.StringToStringVar(&modeBon, "mode-bonus", nil, "Mode bonuses, e.g. CW=2")
	f.BoolVar(&inactive, "inactive", false, "Hide the contest from the active list")
	return cmd
}

// contestInput converts a stored contest back into an editable input.
func contestInput(c *model.Contest) client.ContestInput {
	return client.ContestInput{
		Name:        c.Name,
		Description: c.Description,
		StartDate:   c.StartDate.UTC().Format(time.RFC3339),
		EndDate:     c.EndDate.UTC().Format(time.RFC3339),
		Rules:       c.Rules,
		Scoring:     c.Scoring,
		IsActive:    c.IsActive,
	}
}

func mergeContest(cmd *cobra.Command, base, flags client.ContestInput, inactive bool) client.ContestInput {
	f := cmd.Flags()
	if f.Changed("name") {
		base.Name = flags.Name
	}
	if f.Changed("description") {
		base.Description = flags.Description
	}
	if f.Changed("start") {
		base.StartDate = flags.StartDate
	}
	if f.Changed("end") {
		base.EndDate = flags.EndDate
	}
	if f.Changed("qso-points") {
		base.Scoring.QSOPoints = flags.Scoring.QSOPoints
	}
	if f.Changed("inactive") {
		base.IsActive = !inactive
	}
	return base
}

// parseWeights turns k=v flag pairs into numeric weights. With no pairs,
// current is kept.
func parseWeights(flag string, pairs map[string]string, current map[string]float64) (map[string]float64, error) {
	if len(pairs) == 0 {
		return current, nil
	}
	out := make(map[string]float64, len(pairs))
	for k, v := range pairs {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("--%s %s=%s: not a number", flag, k, v)
		}
		out[k] = w
	}
	return out, nil
}

func newLeaderboardCmd() *cobra.Command {
	var user int64

	cmd := &cobra.Command{
		Use:   "leaderboard CONTEST_ID",
		Short: "Show a contest ranking, or one operator's scored QSOs with --user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if user > 0 {
				if err := dispatch(cmd, app.FetchLeaderboardDetail{ContestID: id, UserID: user}); err != nil {
					return err
				}
				renderer(cmd).LeaderboardDetail(rt.ctrl.Snapshot().LeaderboardDetail)
				return nil
			}
			if err := dispatch(cmd, app.FetchLeaderboard{ContestID: id}); err != nil {
				return err
			}
			renderer(cmd).Leaderboard(rt.ctrl.Snapshot().Leaderboard)
			return nil
		},
	}

	cmd.Flags().Int64Var(&user, "user", 0, "Show this user's scored QSOs")
	return cmd
}
