package client

import (
	"context"
	"net/http"

	"github.com/me/logshack/pkg/model"
)

// Login exchanges credentials for a session token. It does not touch the
// session store; establishing the session is the caller's decision.
func (c *Client) Login(ctx context.Context, callsign, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.Do(ctx, "login", Request{
		Method:   http.MethodPost,
		Path:     "/login",
		Body:     model.LoginRequest{Callsign: callsign, Password: password},
		SkipAuth: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyMFA completes a login that returned mfa_required. The pending token
// travels in the body, not the session header.
func (c *Client) VerifyMFA(ctx context.Context, pendingToken, code string) (*model.MFAVerifyResponse, error) {
	var resp model.MFAVerifyResponse
	err := c.Do(ctx, "verify mfa", Request{
		Method:   http.MethodPost,
		Path:     "/mfa/verify",
		Body:     model.MFAVerifyRequest{SessionToken: pendingToken, Token: code},
		SkipAuth: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) error {
	return c.Do(ctx, "register", Request{
		Method:   http.MethodPost,
		Path:     "/register",
		Body:     req,
		SkipAuth: true,
	}, nil)
}

// Logout invalidates token on the server. The token is passed explicitly so
// a rejected logout never re-enters the expiry recovery.
func (c *Client) Logout(ctx context.Context, token string) error {
	h := http.Header{}
	h.Set(HeaderSessionToken, token)
	return c.Do(ctx, "logout", Request{
		Method:   http.MethodPost,
		Path:     "/logout",
		Header:   h,
		SkipAuth: true,
	}, nil)
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (*model.Me, error) {
	var me model.Me
	if err := c.Do(ctx, "get current user", Request{Path: "/auth/me"}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SetupMFA starts TOTP enrolment.
func (c *Client) SetupMFA(ctx context.Context) (*model.MFASetup, error) {
	var setup model.MFASetup
	if err := c.Do(ctx, "setup mfa", Request{Method: http.MethodPost, Path: "/mfa/setup"}, &setup); err != nil {
		return nil, err
	}
	return &setup, nil
}

// EnableMFA confirms enrolment with a code from the authenticator.
func (c *Client) EnableMFA(ctx context.Context, code string) error {
	return c.Do(ctx, "enable mfa", Request{
		Method: http.MethodPost,
		Path:   "/mfa/enable",
		Body:   map[string]string{"token": code},
	}, nil)
}

// DisableMFA turns MFA off; the server requires the account password.
func (c *Client) DisableMFA(ctx context.Context, password string) error {
	return c.Do(ctx, "disable mfa", Request{
		Method: http.MethodPost,
		Path:   "/mfa/disable",
		Body:   map[string]string{"password": password},
	}, nil)
}

// ChangePassword changes the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.Do(ctx, "change password", Request{
		Method: http.MethodPost,
		Path:   "/change-password",
		Body:   model.ChangePasswordRequest{CurrentPassword: current, NewPassword: next},
	}, nil)
}

// Health checks the given service.
func (c *Client) Health(ctx context.Context, svc Service) error {
	return c.Do(ctx, "health", Request{Path: "/health", Service: svc, SkipAuth: true}, nil)
}
