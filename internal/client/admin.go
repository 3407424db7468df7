package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/me/logshack/pkg/model"
)

// Sysop user management.

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context) ([]model.AdminUser, error) {
	var resp struct {
		Users []model.AdminUser `json:"users"`
	}
	if err := c.Do(ctx, "list users", Request{Path: "/admin/users"}, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// CreateUser creates an account.
func (c *Client) CreateUser(ctx context.Context, in model.UserInput) (*model.AdminUser, error) {
	var resp struct {
		User model.AdminUser `json:"user"`
	}
	err := c.Do(ctx, "create user", Request{Method: http.MethodPost, Path: "/admin/users", Body: in}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UpdateUser edits an account. Zero fields of in are left unchanged.
func (c *Client) UpdateUser(ctx context.Context, id int64, in model.UserInput) (*model.AdminUser, error) {
	var resp struct {
		User model.AdminUser `json:"user"`
	}
	err := c.Do(ctx, "update user", Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/admin/users/%d", id),
		Body:   in,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.Do(ctx, "delete user", Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/admin/users/%d", id),
	}, nil)
}

// ResetPassword assigns a temporary password and ends the user's sessions.
func (c *Client) ResetPassword(ctx context.Context, id int64) (*model.PasswordReset, error) {
	var resp model.PasswordReset
	err := c.Do(ctx, "reset password", Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/admin/users/%d/reset-password", id),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Log and contest admin.

// ScopeUsers lists accounts with their QSO counts.
func (c *Client) ScopeUsers(ctx context.Context, scope model.ReportScope) ([]model.LogAdminUser, error) {
	var resp struct {
		Users []model.LogAdminUser `json:"users"`
	}
	if err := c.Do(ctx, "list "+string(scope)+" users", Request{Path: "/" + string(scope) + "/users"}, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// UserLogs returns one page of another operator's QSOs.
func (c *Client) UserLogs(ctx context.Context, scope model.ReportScope, userID int64, page model.PageRequest) (*model.UserLogs, error) {
	page.Clamp()
	q := url.Values{}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("per_page", strconv.Itoa(page.PerPage))

	var resp model.UserLogs
	err := c.Do(ctx, "get user logs", Request{
		Path:  fmt.Sprintf("/%s/users/%d/logs", scope, userID),
		Query: q,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetUserLogs deletes every QSO of a user. Log admins only.
func (c *Client) ResetUserLogs(ctx context.Context, userID int64) (*model.Message, error) {
	var resp model.Message
	err := c.Do(ctx, "reset user logs", Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/logadmin/users/%d/logs", userID),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AvailableFields returns the columns a report can select.
func (c *Client) AvailableFields(ctx context.Context, scope model.ReportScope) (*model.AvailableFields, error) {
	var resp model.AvailableFields
	if err := c.Do(ctx, "available fields", Request{Path: "/" + string(scope) + "/available-fields"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Report generates a cross-user report.
func (c *Client) Report(ctx context.Context, scope model.ReportScope, req model.ReportRequest) (*model.Report, error) {
	var resp model.Report
	err := c.Do(ctx, "generate report", Request{
		Method: http.MethodPost,
		Path:   "/" + string(scope) + "/report",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Report templates live under the contest admin API.

// ListTemplates returns templates visible to the caller.
func (c *Client) ListTemplates(ctx context.Context) ([]model.ReportTemplate, error) {
	var resp struct {
		Templates []model.ReportTemplate `json:"templates"`
	}
	if err := c.Do(ctx, "list templates", Request{Path: "/contestadmin/templates"}, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// GetTemplate returns one template.
func (c *Client) GetTemplate(ctx context.Context, id int64) (*model.ReportTemplate, error) {
	var resp struct {
		Template model.ReportTemplate `json:"template"`
	}
	if err := c.Do(ctx, "get template", Request{Path: fmt.Sprintf("/contestadmin/templates/%d", id)}, &resp); err != nil {
		return nil, err
	}
	return &resp.Template, nil
}

// CreateTemplate saves a report definition.
func (c *Client) CreateTemplate(ctx context.Context, t model.ReportTemplate) (*model.ReportTemplate, error) {
	body := map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"fields":      t.Fields,
		"filters":     t.Filters,
	}
	if t.SharedWithRole != "" {
		body["shared_with_role"] = t.SharedWithRole
	}
	var resp struct {
		Template model.ReportTemplate `json:"template"`
	}
	err := c.Do(ctx, "create template", Request{
		Method: http.MethodPost,
		Path:   "/contestadmin/templates",
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Template, nil
}

// DeleteTemplate removes a template owned by the caller.
func (c *Client) DeleteTemplate(ctx context.Context, id int64) error {
	return c.Do(ctx, "delete template", Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/contestadmin/templates/%d", id),
	}, nil)
}

// RunTemplate generates the report a template describes.
func (c *Client) RunTemplate(ctx context.Context, id int64) (*model.Report, error) {
	var resp model.Report
	err := c.Do(ctx, "run template", Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/contestadmin/templates/%d/run", id),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
