package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

func (c *Controller) listContests(ctx context.Context) error {
	if err := c.require(view.SurfaceContestList); err != nil {
		return err
	}
	return c.loadContests(ctx)
}

func (c *Controller) loadContests(ctx context.Context) error {
	t := c.begin(viewContests)
	contests, err := c.client.ListContests(ctx)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Contests = contests })
	return nil
}

func (c *Controller) getContest(ctx context.Context, cmd GetContest) error {
	if err := c.require(view.SurfaceContestList); err != nil {
		return err
	}
	t := c.begin(viewContest)
	contest, err := c.client.GetContest(ctx, cmd.ID)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Contest = contest })
	return nil
}

func (c *Controller) saveContest(ctx context.Context, cmd SaveContest) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	in := cmd.Input
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.StartDate == "" || in.EndDate == "" {
		return invalid("Name, start date and end date are required")
	}
	start, err := model.ParseTimestamp(in.StartDate)
	if err != nil {
		return invalid("Invalid start date %q", in.StartDate)
	}
	end, err := model.ParseTimestamp(in.EndDate)
	if err != nil {
		return invalid("Invalid end date %q", in.EndDate)
	}
	if !end.After(start.Time) {
		return invalid("End date must be after start date")
	}

	if cmd.ID == 0 {
		created, err := c.client.CreateContest(ctx, in)
		if err != nil {
			return err
		}
		c.notify(LevelSuccess, fmt.Sprintf("Contest %q created", created.Name))
	} else {
		if err := c.client.UpdateContest(ctx, cmd.ID, in); err != nil {
			return err
		}
		c.notify(LevelSuccess, "Contest updated")
	}
	return c.loadContests(ctx)
}

func (c *Controller) deleteContest(ctx context.Context, cmd DeleteContest) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	if err := c.client.DeleteContest(ctx, cmd.ID); err != nil {
		return err
	}
	c.update(func(s *State) {
		if s.Contest != nil && s.Contest.ID == cmd.ID {
			s.Contest = nil
		}
		if s.Leaderboard != nil && s.Leaderboard.ContestID == cmd.ID {
			s.Leaderboard = nil
		}
	})
	c.notify(LevelSuccess, "Contest deleted")
	return c.loadContests(ctx)
}

func (c *Controller) populateContest(ctx context.Context, cmd PopulateContest) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	res, err := c.client.PopulateContest(ctx, cmd.ID)
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.LastPopulate = res })
	c.notify(LevelSuccess, fmt.Sprintf("Added %d new entries (%d total)", res.NewEntries, res.TotalEntries))
	return c.loadContests(ctx)
}

func (c *Controller) fetchLeaderboard(ctx context.Context, cmd FetchLeaderboard) error {
	if err := c.require(view.SurfaceContestList); err != nil {
		return err
	}
	t := c.begin(viewLeaderboard)
	lb, err := c.client.Leaderboard(ctx, cmd.ContestID)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Leaderboard = lb })
	return nil
}

func (c *Controller) fetchLeaderboardDetail(ctx context.Context, cmd FetchLeaderboardDetail) error {
	if err := c.require(view.SurfaceContestList); err != nil {
		return err
	}
	t := c.begin(viewDetail)
	detail, err := c.client.LeaderboardDetail(ctx, cmd.ContestID, cmd.UserID)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.LeaderboardDetail = detail })
	return nil
}
