package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

// scopeSurface maps a report scope to the surface that exposes it.
func scopeSurface(scope model.ReportScope) (view.Surface, error) {
	switch scope {
	case model.ScopeLogAdmin:
		return view.SurfaceLogAdmin, nil
	case model.ScopeContestAdmin:
		return view.SurfaceContestAdmin, nil
	default:
		return "", invalid("Unknown report scope %q", scope)
	}
}

func (c *Controller) requireScope(scope model.ReportScope) error {
	s, err := scopeSurface(scope)
	if err != nil {
		return err
	}
	return c.require(s)
}

func (c *Controller) listAdminUsers(ctx context.Context) error {
	if err := c.require(view.SurfaceSysop); err != nil {
		return err
	}
	return c.loadAdminUsers(ctx)
}

func (c *Controller) loadAdminUsers(ctx context.Context) error {
	t := c.begin(viewUsers)
	users, err := c.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Users = users })
	return nil
}

func (c *Controller) createAdminUser(ctx context.Context, cmd CreateAdminUser) error {
	if err := c.require(view.SurfaceSysop); err != nil {
		return err
	}
	in := cmd.Input
	in.Callsign = normalizeCallsign(in.Callsign)
	in.Email = strings.TrimSpace(in.Email)
	if in.Callsign == "" || in.Email == "" || in.Password == "" {
		return invalid("Callsign, email and password are required")
	}
	if in.Role != "" && !in.Role.Valid() {
		return invalid("Unknown role %q", in.Role)
	}
	u, err := c.client.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	c.notify(LevelSuccess, fmt.Sprintf("User %s created", u.Callsign))
	return c.loadAdminUsers(ctx)
}

func (c *Controller) updateAdminUser(ctx context.Context, cmd UpdateAdminUser) error {
	if err := c.require(view.SurfaceSysop); err != nil {
		return err
	}
	if cmd.Input.Role != "" && !cmd.Input.Role.Valid() {
		return invalid("Unknown role %q", cmd.Input.Role)
	}
	if _, err := c.client.UpdateUser(ctx, cmd.ID, cmd.Input); err != nil {
		return err
	}
	c.notify(LevelSuccess, "User updated")
	return c.loadAdminUsers(ctx)
}

func (c *Controller) deleteAdminUser(ctx context.Context, cmd DeleteAdminUser) error {
	if err := c.require(view.SurfaceSysop); err != nil {
		return err
	}
	if err := c.client.DeleteUser(ctx, cmd.ID); err != nil {
		return err
	}
	c.notify(LevelSuccess, "User deleted")
	return c.loadAdminUsers(ctx)
}

func (c *Controller) resetUserPassword(ctx context.Context, cmd ResetUserPassword) error {
	if err := c.require(view.SurfaceSysop); err != nil {
		return err
	}
	reset, err := c.client.ResetPassword(ctx, cmd.ID)
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.LastReset = reset })
	c.notify(LevelSuccess, reset.Message)
	return c.loadAdminUsers(ctx)
}

func (c *Controller) listScopeUsers(ctx context.Context, scope model.ReportScope) error {
	if err := c.requireScope(scope); err != nil {
		return err
	}
	return c.loadScopeUsers(ctx, scope)
}

func (c *Controller) loadScopeUsers(ctx context.Context, scope model.ReportScope) error {
	t := c.begin(viewScopeUsers)
	users, err := c.client.ScopeUsers(ctx, scope)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.ScopeUsers = users })
	return nil
}

func (c *Controller) fetchUserLogs(ctx context.Context, cmd FetchUserLogs) error {
	if err := c.requireScope(cmd.Scope); err != nil {
		return err
	}
	t := c.begin(viewUserLogs)
	logs, err := c.client.UserLogs(ctx, cmd.Scope, cmd.UserID, model.PageRequest{Page: max(cmd.Page, 1), PerPage: model.LogsPerPage})
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) {
		s.UserLogs = logs
		s.UserLogsPager = view.Paginate(logs.CurrentPage, logs.Pages)
	})
	return nil
}

// resetUserLogs deletes every QSO of a user. Only log admins may do this.
func (c *Controller) resetUserLogs(ctx context.Context, cmd ResetUserLogs) error {
	if err := c.require(view.SurfaceLogAdmin); err != nil {
		return err
	}
	msg, err := c.client.ResetUserLogs(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	c.update(func(s *State) {
		if s.UserLogs != nil && s.UserLogs.User.ID == cmd.UserID {
			s.UserLogs = nil
		}
	})
	c.notify(LevelSuccess, msg.Message)
	return c.loadScopeUsers(ctx, model.ScopeLogAdmin)
}

func (c *Controller) fetchReportFields(ctx context.Context, cmd FetchReportFields) error {
	if err := c.requireScope(cmd.Scope); err != nil {
		return err
	}
	t := c.begin(viewFields)
	fields, err := c.client.AvailableFields(ctx, cmd.Scope)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Fields = fields })
	return nil
}

func (c *Controller) generateReport(ctx context.Context, cmd GenerateReport) error {
	if err := c.requireScope(cmd.Scope); err != nil {
		return err
	}
	fields := cleanFields(cmd.Fields)
	if len(fields) == 0 {
		return invalid("Select at least one field")
	}
	t := c.begin(viewReport)
	rep, err := c.client.Report(ctx, cmd.Scope, model.ReportRequest{Fields: fields, Filters: cmd.Filters})
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Report = rep })
	return nil
}

// cleanFields trims field names and drops blanks and duplicates, keeping order.
func cleanFields(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func (c *Controller) listTemplates(ctx context.Context) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	return c.loadTemplates(ctx)
}

func (c *Controller) loadTemplates(ctx context.Context) error {
	t := c.begin(viewTemplates)
	templates, err := c.client.ListTemplates(ctx)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Templates = templates })
	return nil
}

func (c *Controller) saveTemplate(ctx context.Context, cmd SaveTemplate) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	tpl := cmd.Template
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.Fields = cleanFields(tpl.Fields)
	if tpl.Name == "" {
		return invalid("Template name is required")
	}
	if len(tpl.Fields) == 0 {
		return invalid("Select at least one field")
	}
	if tpl.SharedWithRole != "" && !tpl.SharedWithRole.Valid() {
		return invalid("Unknown role %q", tpl.SharedWithRole)
	}
	if _, err := c.client.CreateTemplate(ctx, tpl); err != nil {
		return err
	}
	c.notify(LevelSuccess, fmt.Sprintf("Template %q saved", tpl.Name))
	return c.loadTemplates(ctx)
}

func (c *Controller) deleteTemplate(ctx context.Context, cmd DeleteTemplate) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	if err := c.client.DeleteTemplate(ctx, cmd.ID); err != nil {
		return err
	}
	c.notify(LevelSuccess, "Template deleted")
	return c.loadTemplates(ctx)
}

func (c *Controller) runTemplate(ctx context.Context, cmd RunTemplate) error {
	if err := c.require(view.SurfaceContestAdmin); err != nil {
		return err
	}
	t := c.begin(viewReport)
	rep, err := c.client.RunTemplate(ctx, cmd.ID)
	if err != nil {
		return err
	}
	c.commit(t, func(s *State) { s.Report = rep })
	return nil
}
