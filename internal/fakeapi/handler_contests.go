package fakeapi

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/me/logshack/pkg/model"
)

type contestInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Rules       map[string]any `json:"rules"`
	Scoring     *model.Scoring `json:"scoring"`
	IsActive    *bool          `json:"is_active"`
}

// apply validates in and copies it onto c. It returns a client-facing
// message on failure.
func (in contestInput) apply(c *model.Contest) string {
	if in.Name == "" || in.StartDate == "" || in.EndDate == "" {
		return "Missing required field: name, start_date and end_date are required"
	}
	start, err := model.ParseTimestamp(in.StartDate)
	if err != nil {
		return "Invalid date format: " + in.StartDate
	}
	end, err := model.ParseTimestamp(in.EndDate)
	if err != nil {
		return "Invalid date format: " + in.EndDate
	}
	if !end.After(start.Time) {
		return "End date must be after start date"
	}
	c.Name = in.Name
	c.Description = in.Description
	c.StartDate = start
	c.EndDate = end
	c.Rules = in.Rules
	if in.Scoring != nil {
		c.Scoring = *in.Scoring
	}
	if c.Scoring.QSOPoints == 0 {
		c.Scoring.QSOPoints = 1
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return ""
}

func (s *Server) handleListContests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := []model.Contest{}
	for _, c := range s.contests {
		out = append(out, *c)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate.Time) })
	respondOK(w, out)
}

func (s *Server) handleGetContest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.contests[id]
	if !found {
		respondError(w, http.StatusNotFound, "Contest not found")
		return
	}
	out := *c
	out.EntryCount = len(s.entries[id])
	respondOK(w, out)
}

func (s *Server) handleCreateContest(w http.ResponseWriter, r *http.Request) {
	var in contestInput
	if !decodeBody(w, r, &in) {
		return
	}
	c := &model.Contest{IsActive: true, CreatedAt: model.NewTimestamp(time.Now().UTC())}
	if msg := in.apply(c); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	c.ID = s.id()
	s.contests[c.ID] = c
	out := *c
	s.mu.Unlock()
	respondCreated(w, out)
}

func (s *Server) handleUpdateContest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in contestInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.contests[id]
	if !found {
		respondError(w, http.StatusNotFound, "Contest not found")
		return
	}
	next := *c
	if msg := in.apply(&next); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	*c = next
	respondMessage(w, "Contest updated successfully")
}

func (s *Server) handleDeleteContest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.contests[id]; !found {
		respondError(w, http.StatusNotFound, "Contest not found")
		return
	}
	delete(s.contests, id)
	delete(s.entries, id)
	respondMessage(w, "Contest deleted successfully")
}

// qsoTime combines ADIF date and time into a UTC instant.
func qsoTime(e model.LogEntry) (time.Time, bool) {
	tm := e.TimeOn
	if len(tm) == 4 {
		tm += "00"
	}
	t, err := time.Parse("20060102150405", e.QSODate+tm)
	return t, err == nil
}

// handlePopulateContest credits every QSO inside the contest window that is
// not already credited. Points are qso_points scaled by the band multiplier
// and mode bonus when present.
func (s *Server) handlePopulateContest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.contests[id]
	if !found {
		respondError(w, http.StatusNotFound, "Contest not found")
		return
	}

	credited := map[int64]bool{}
	for _, e := range s.entries[id] {
		credited[e.logID] = true
	}

	added := 0
	for userID, logs := range s.logs {
		for _, e := range logs {
			if credited[e.ID] {
				continue
			}
			at, ok := qsoTime(e)
			if !ok || at.Before(c.StartDate.Time) || at.After(c.EndDate.Time) {
				continue
			}
			points := c.Scoring.QSOPoints
			if m, ok := c.Scoring.BandMultiplier[strings.ToLower(e.Band)]; ok {
				points *= m
			}
			if b, ok := c.Scoring.ModeBonus[strings.ToUpper(e.Mode)]; ok {
				points += b
			}
			s.entries[id] = append(s.entries[id], contestEntry{id: s.id(), userID: userID, logID: e.ID, points: points})
			added++
		}
	}

	respondOK(w, model.PopulateResult{
		Message:      "Contest populated successfully",
		NewEntries:   added,
		TotalEntries: len(s.entries[id]),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.contests[id]
	if !found {
		respondError(w, http.StatusNotFound, "Contest not found")
		return
	}

	totals := map[int64]*model.LeaderboardEntry{}
	for _, e := range s.entries[id] {
		u := s.users[e.userID]
		if u == nil {
			continue
		}
		le, ok := totals[e.userID]
		if !ok {
			le = &model.LeaderboardEntry{Callsign: u.callsign, UserID: u.id}
			totals[e.userID] = le
		}
		le.QSOCount++
		le.TotalPoints += e.points
	}

	board := make([]model.LeaderboardEntry, 0, len(totals))
	for _, le := range totals {
		board = append(board, *le)
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].TotalPoints != board[j].TotalPoints {
			return board[i].TotalPoints > board[j].TotalPoints
		}
		return board[i].Callsign < board[j].Callsign
	})
	for i := range board {
		board[i].Rank = i + 1
	}

	respondOK(w, model.Leaderboard{ContestID: c.ID, ContestName: c.Name, Entries: board})
}

func (s *Server) handleLeaderboardDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.contests[id]
	if !found {
		respondError(w, http.StatusNotFound, "Contest not found")
		return
	}
	u, found := s.users[userID]
	if !found {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	byLog := map[int64]model.LogEntry{}
	for _, e := range s.logs[userID] {
		byLog[e.ID] = e
	}

	d := model.LeaderboardDetail{ContestID: c.ID, ContestName: c.Name, Callsign: u.callsign, Entries: []model.ScoredQSO{}}
	for _, ce := range s.entries[id] {
		if ce.userID != userID {
			continue
		}
		e := byLog[ce.logID]
		d.Entries = append(d.Entries, model.ScoredQSO{
			ID:      ce.id,
			QSODate: e.QSODate,
			TimeOn:  e.TimeOn,
			Call:    e.Call,
			Band:    e.Band,
			Mode:    e.Mode,
			Points:  ce.points,
		})
		d.TotalPoints += ce.points
	}
	sort.Slice(d.Entries, func(i, j int) bool {
		a, b := d.Entries[i], d.Entries[j]
		if a.QSODate != b.QSODate {
			return a.QSODate < b.QSODate
		}
		return a.TimeOn < b.TimeOn
	})
	d.QSOCount = len(d.Entries)
	respondOK(w, d)
}
