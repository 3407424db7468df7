package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

func (c *Controller) fetchLogs(ctx context.Context, cmd FetchLogs) error {
	if err := c.require(view.SurfaceLogs); err != nil {
		return err
	}
	page, filter := max(cmd.Page, 1), c.Snapshot().LogFilter
	if cmd.Filter != nil && *cmd.Filter != filter {
		page, filter = 1, *cmd.Filter
	}
	return c.loadLogs(ctx, page, filter)
}

func (c *Controller) loadLogs(ctx context.Context, page int, filter model.LogFilter) error {
	t := c.begin(viewLogs)
	lp, err := c.client.ListLogs(ctx, model.PageRequest{Page: page, PerPage: model.LogsPerPage}, filter)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) {
		s.Logs = lp
		s.LogFilter = filter
		s.LogsPager = view.Paginate(lp.CurrentPage, lp.Pages)
	})
	return nil
}

func (c *Controller) fetchStats(ctx context.Context) error {
	if err := c.require(view.SurfaceLogs); err != nil {
		return err
	}
	return c.loadStats(ctx)
}

func (c *Controller) loadStats(ctx context.Context) error {
	t := c.begin(viewStats)
	stats, err := c.client.Stats(ctx)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Stats = stats })
	return nil
}

func (c *Controller) fetchUploads(ctx context.Context) error {
	if err := c.require(view.SurfaceUpload); err != nil {
		return err
	}
	return c.loadUploads(ctx)
}

func (c *Controller) loadUploads(ctx context.Context) error {
	t := c.begin(viewUploads)
	uploads, err := c.client.Uploads(ctx)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Uploads = uploads })
	return nil
}

// upload sends an ADIF file with an API key, then reloads every view the
// new QSOs show up in.
func (c *Controller) upload(ctx context.Context, cmd Upload) error {
	if err := c.require(view.SurfaceUpload); err != nil {
		return err
	}
	key := strings.TrimSpace(cmd.APIKey)
	if key == "" {
		return invalid("API key is required")
	}
	if cmd.Reader == nil || cmd.Filename == "" {
		return invalid("Select an ADIF file to upload")
	}

	res, err := c.client.Upload(ctx, key, cmd.Filename, cmd.Reader)
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.LastUpload = res })
	c.notify(LevelSuccess, fmt.Sprintf("Upload complete: %s new, %s duplicates, %s errors",
		humanize.Comma(int64(res.New)), humanize.Comma(int64(res.Duplicates)), humanize.Comma(int64(res.Errors))))

	filter := c.Snapshot().LogFilter
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.loadLogs(gctx, 1, filter) })
	g.Go(func() error { return c.loadStats(gctx) })
	g.Go(func() error { return c.loadUploads(gctx) })
	return g.Wait()
}

func (c *Controller) export(ctx context.Context, cmd Export) error {
	if err := c.require(view.SurfaceLogs); err != nil {
		return err
	}

	if cmd.To != nil {
		filename, n, err := c.client.Export(ctx, cmd.Filter, cmd.To)
		if err != nil {
			return err
		}
		c.update(func(s *State) {
			s.LastExport = &ExportResult{Filename: filename, Location: "-", Bytes: n}
		})
		return nil
	}

	var buf bytes.Buffer
	filename, n, err := c.client.Export(ctx, cmd.Filter, &buf)
	if err != nil {
		return err
	}
	loc, err := c.archiver.Save(ctx, cmd.Dest, filename, &buf)
	if err != nil {
		return fmt.Errorf("save export: %w", err)
	}

	c.update(func(s *State) {
		s.LastExport = &ExportResult{Filename: filename, Location: loc, Bytes: n}
	})
	c.notify(LevelSuccess, fmt.Sprintf("Exported %s to %s", humanize.Bytes(uint64(n)), loc))
	return nil
}

func (c *Controller) listKeys(ctx context.Context) error {
	if err := c.require(view.SurfaceAPIKeys); err != nil {
		return err
	}
	return c.loadKeys(ctx)
}

func (c *Controller) loadKeys(ctx context.Context) error {
	t := c.begin(viewKeys)
	keys, err := c.client.ListKeys(ctx)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Keys = keys })
	return nil
}

func (c *Controller) createKey(ctx context.Context, cmd CreateKey) error {
	if err := c.require(view.SurfaceAPIKeys); err != nil {
		return err
	}
	created, err := c.client.CreateKey(ctx, strings.TrimSpace(cmd.Description))
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.NewKey = created })
	c.notify(LevelSuccess, "API key created. Copy it now, it will not be shown again.")
	return c.loadKeys(ctx)
}

func (c *Controller) deleteKey(ctx context.Context, cmd DeleteKey) error {
	if err := c.require(view.SurfaceAPIKeys); err != nil {
		return err
	}
	if err := c.client.DeleteKey(ctx, cmd.ID); err != nil {
		return err
	}
	c.notify(LevelSuccess, "API key deleted")
	return c.loadKeys(ctx)
}
