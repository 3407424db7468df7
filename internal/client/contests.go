package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/me/logshack/pkg/model"
)

// ContestInput creates or edits a contest.
type ContestInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Rules       map[string]any `json:"rules,omitempty"`
	Scoring     model.Scoring  `json:"scoring"`
	IsActive    bool           `json:"is_active"`
}

func contestReq(method, path string, body any) Request {
	return Request{Method: method, Path: path, Body: body, Service: ServiceContest}
}

// ListContests returns every contest, newest first.
func (c *Client) ListContests(ctx context.Context) ([]model.Contest, error) {
	var contests []model.Contest
	if err := c.Do(ctx, "list contests", contestReq(http.MethodGet, "/contests", nil), &contests); err != nil {
		return nil, err
	}
	return contests, nil
}

// GetContest returns one contest with its entry count.
func (c *Client) GetContest(ctx context.Context, id int64) (*model.Contest, error) {
	var contest model.Contest
	if err := c.Do(ctx, "get contest", contestReq(http.MethodGet, fmt.Sprintf("/contests/%d", id), nil), &contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

// CreateContest creates a contest.
func (c *Client) CreateContest(ctx context.Context, in ContestInput) (*model.Contest, error) {
	var contest model.Contest
	if err := c.Do(ctx, "create contest", contestReq(http.MethodPost, "/contests", in), &contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

// UpdateContest replaces a contest's definition.
func (c *Client) UpdateContest(ctx context.Context, id int64, in ContestInput) error {
	return c.Do(ctx, "update contest", contestReq(http.MethodPut, fmt.Sprintf("/contests/%d", id), in), nil)
}

// DeleteContest removes a contest and its entries.
func (c *Client) DeleteContest(ctx context.Context, id int64) error {
	return c.Do(ctx, "delete contest", contestReq(http.MethodDelete, fmt.Sprintf("/contests/%d", id), nil), nil)
}

// PopulateContest scans uploaded logs into contest entries.
func (c *Client) PopulateContest(ctx context.Context, id int64) (*model.PopulateResult, error) {
	var resp model.PopulateResult
	if err := c.Do(ctx, "populate contest", contestReq(http.MethodPost, fmt.Sprintf("/contests/%d/populate", id), nil), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Leaderboard returns the ranking of a contest.
func (c *Client) Leaderboard(ctx context.Context, id int64) (*model.Leaderboard, error) {
	var lb model.Leaderboard
	if err := c.Do(ctx, "leaderboard", contestReq(http.MethodGet, fmt.Sprintf("/contests/%d/leaderboard", id), nil), &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// LeaderboardDetail returns one participant's scored QSOs.
func (c *Client) LeaderboardDetail(ctx context.Context, id, userID int64) (*model.LeaderboardDetail, error) {
	var d model.LeaderboardDetail
	path := fmt.Sprintf("/contests/%d/leaderboard/%d", id, userID)
	if err := c.Do(ctx, "leaderboard detail", contestReq(http.MethodGet, path, nil), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
