package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/me/logshack/pkg/model"
)

// DefaultExportFilename is used when the server sends no usable
// Content-Disposition header.
const DefaultExportFilename = "logbook.adi"

// ListLogs returns one page of the caller's QSOs.
func (c *Client) ListLogs(ctx context.Context, page model.PageRequest, filter model.LogFilter) (*model.LogPage, error) {
	page.Clamp()
	q := filter.Values()
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("per_page", strconv.Itoa(page.PerPage))

	var resp model.LogPage
	if err := c.Do(ctx, "list logs", Request{Path: "/logs", Query: q}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns the caller's log summary.
func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.Do(ctx, "log stats", Request{Path: "/logs/stats"}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Upload sends an ADIF file authenticated by apiKey. This is a separate
// auth channel: no session token is attached and a rejection never ends
// the session.
func (c *Client) Upload(ctx context.Context, apiKey, filename string, r io.Reader) (*model.UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	h := http.Header{}
	h.Set(HeaderAPIKey, apiKey)

	var result model.UploadResult
	err := c.Do(ctx, "upload log", Request{
		Method:      http.MethodPost,
		Path:        "/logs/upload",
		Body:        pr,
		ContentType: mw.FormDataContentType(),
		Header:      h,
		SkipAuth:    true,
	}, &result)
	pr.Close()
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Export streams the caller's log as ADIF into w and returns the filename
// suggested by the server.
func (c *Client) Export(ctx context.Context, filter model.LogFilter, w io.Writer) (string, int64, error) {
	resp, err := c.send(ctx, "export logs", Request{Path: "/logs/export", Query: filter.Values()})
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return "", n, wrap("export logs", fmt.Errorf("read body: %w", err))
	}
	return exportFilename(resp.Header.Get("Content-Disposition")), n, nil
}

func exportFilename(disposition string) string {
	if disposition == "" {
		return DefaultExportFilename
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return DefaultExportFilename
	}
	return params["filename"]
}

// Uploads returns the caller's upload history.
func (c *Client) Uploads(ctx context.Context) ([]model.Upload, error) {
	var resp struct {
		Uploads []model.Upload `json:"uploads"`
	}
	if err := c.Do(ctx, "list uploads", Request{Path: "/uploads"}, &resp); err != nil {
		return nil, err
	}
	return resp.Uploads, nil
}

// ListKeys returns the caller's API keys.
func (c *Client) ListKeys(ctx context.Context) ([]model.APIKey, error) {
	var resp struct {
		Keys []model.APIKey `json:"keys"`
	}
	if err := c.Do(ctx, "list api keys", Request{Path: "/keys"}, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// CreateKey creates an API key. The full key is only ever returned here.
func (c *Client) CreateKey(ctx context.Context, description string) (*model.CreatedAPIKey, error) {
	var created model.CreatedAPIKey
	err := c.Do(ctx, "create api key", Request{
		Method: http.MethodPost,
		Path:   "/keys",
		Body:   map[string]string{"description": description},
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteKey revokes an API key.
func (c *Client) DeleteKey(ctx context.Context, id int64) error {
	return c.Do(ctx, "delete api key", Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/keys/%d", id),
	}, nil)
}
