package app

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/internal/view"
	"github.com/me/logshack/pkg/model"
)

// normalizeCallsign upper-cases and trims a callsign as the server stores it.
func normalizeCallsign(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (c *Controller) login(ctx context.Context, cmd Login) error {
	callsign := normalizeCallsign(cmd.Callsign)
	if callsign == "" || cmd.Password == "" {
		return invalid("Callsign and password are required")
	}

	resp, err := c.client.Login(ctx, callsign, cmd.Password)
	if err != nil {
		return err
	}
	if resp.Callsign != "" {
		callsign = resp.Callsign
	}
	role := model.ParseRole(resp.Role)

	if resp.MFARequired {
		c.mu.Lock()
		c.pending = &pendingLogin{token: resp.SessionToken, callsign: callsign, role: role}
		c.state.Screen = ScreenMFA
		c.mu.Unlock()
		c.notify(LevelInfo, MsgMFARequired)
		return nil
	}

	return c.establish(ctx, resp.SessionToken, role, callsign, resp.MustChangePassword)
}

func (c *Controller) verifyMFA(ctx context.Context, cmd VerifyMFA) error {
	c.mu.Lock()
	p := c.pending
	c.mu.Unlock()
	if p == nil {
		return invalid("No login is waiting for a verification code")
	}
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return invalid("Verification code is required")
	}

	resp, err := c.client.VerifyMFA(ctx, p.token, code)
	if err != nil {
		if client.IsUnauthorized(err) {
			// The pending login is gone on the server; start over.
			c.mu.Lock()
			c.pending = nil
			c.state.Screen = ScreenLogin
			c.mu.Unlock()
		}
		return err
	}
	return c.establish(ctx, p.token, p.role, p.callsign, resp.MustChangePassword)
}

// establish persists a fully authenticated session and opens the dashboard.
func (c *Controller) establish(ctx context.Context, token string, role model.Role, callsign string, mustChange bool) error {
	sess := c.session.Establish(ctx, token, role, callsign)

	c.mu.Lock()
	c.resetLocked(sess)
	c.state.Screen = ScreenDashboard
	c.state.MustChangePassword = mustChange
	c.mu.Unlock()

	if mustChange {
		c.notify(LevelInfo, MsgMustChange)
		return nil
	}
	c.notify(LevelSuccess, "Welcome, "+callsign)
	return c.enterDashboard(ctx)
}

func (c *Controller) register(ctx context.Context, cmd Register) error {
	callsign := normalizeCallsign(cmd.Callsign)
	if callsign == "" || cmd.Password == "" {
		return invalid("Callsign and password are required")
	}
	if cmd.Password != cmd.Confirm {
		return invalid(MsgPasswordMismatch)
	}

	err := c.client.Register(ctx, model.RegisterRequest{
		Callsign: callsign,
		Email:    strings.TrimSpace(cmd.Email),
		Password: cmd.Password,
	})
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.Screen = ScreenLogin })
	c.notify(LevelSuccess, MsgRegistered)
	return nil
}

// logout ends the session locally whatever the server says.
func (c *Controller) logout(ctx context.Context) error {
	if token := c.session.Token(); token != "" {
		if err := c.client.Logout(ctx, token); err != nil {
			c.logger.Debug("server logout failed", "error", err)
		}
	}
	c.session.Clear(ctx)

	c.mu.Lock()
	c.resetLocked(model.Session{})
	c.mu.Unlock()
	c.notify(LevelSuccess, MsgLoggedOut)
	return nil
}

// enterDashboard recomputes the visible surfaces and loads the first log
// page, the stats and the profile concurrently.
func (c *Controller) enterDashboard(ctx context.Context) error {
	if err := c.require(view.SurfaceLogs); err != nil {
		return err
	}
	c.update(func(s *State) {
		s.Screen = ScreenDashboard
		s.Surfaces = view.Compose(s.Session.Role, s.Session.Valid())
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.loadLogs(gctx, 1, model.LogFilter{}) })
	g.Go(func() error { return c.loadStats(gctx) })
	g.Go(func() error { return c.loadMe(gctx) })
	return g.Wait()
}

func (c *Controller) loadMe(ctx context.Context) error {
	t := c.begin(viewMe)
	me, err := c.client.Me(ctx)
	if err != nil {
		return err
	}
	fresh := c.commit(t, func(s *State) {
		s.Session.Callsign = me.Callsign
		s.MFAEnabled = me.MFAEnabled
	})
	if fresh {
		c.session.SetCallsign(me.Callsign)
	}
	return nil
}

func (c *Controller) setupMFA(ctx context.Context) error {
	if err := c.require(view.SurfaceSettings); err != nil {
		return err
	}
	setup, err := c.client.SetupMFA(ctx)
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.MFASetup = setup })
	return nil
}

func (c *Controller) enableMFA(ctx context.Context, cmd EnableMFA) error {
	if err := c.require(view.SurfaceSettings); err != nil {
		return err
	}
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return invalid("Verification code is required")
	}
	if err := c.client.EnableMFA(ctx, code); err != nil {
		return err
	}
	c.update(func(s *State) { s.MFASetup = nil })
	c.notify(LevelSuccess, "MFA enabled successfully")
	return c.loadMe(ctx)
}

func (c *Controller) disableMFA(ctx context.Context, cmd DisableMFA) error {
	if err := c.require(view.SurfaceSettings); err != nil {
		return err
	}
	if cmd.Password == "" {
		return invalid("Password is required")
	}
	if err := c.client.DisableMFA(ctx, cmd.Password); err != nil {
		return err
	}
	c.notify(LevelSuccess, "MFA disabled successfully")
	return c.loadMe(ctx)
}

func (c *Controller) changePassword(ctx context.Context, cmd ChangePassword) error {
	if err := c.require(view.SurfaceSettings); err != nil {
		return err
	}
	if cmd.Current == "" || cmd.New == "" {
		return invalid("Current and new password are required")
	}
	if cmd.New != cmd.Confirm {
		return invalid(MsgPasswordMismatch)
	}
	if err := c.client.ChangePassword(ctx, cmd.Current, cmd.New); err != nil {
		return err
	}

	c.mu.Lock()
	forced := c.state.MustChangePassword
	c.state.MustChangePassword = false
	c.mu.Unlock()
	c.notify(LevelSuccess, "Password changed successfully")

	if forced {
		return c.enterDashboard(ctx)
	}
	return nil
}
