package fakeapi

import (
	"fmt"
	"time"

	"github.com/me/logshack/pkg/model"
)

// AddContest creates a contest directly and returns its id.
func (s *Server) AddContest(name string, start, end time.Time, scoring model.Scoring) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scoring.QSOPoints == 0 {
		scoring.QSOPoints = 1
	}
	c := &model.Contest{
		ID:        s.id(),
		Name:      name,
		StartDate: model.NewTimestamp(start.UTC()),
		EndDate:   model.NewTimestamp(end.UTC()),
		Scoring:   scoring,
		IsActive:  true,
		CreatedAt: model.NewTimestamp(time.Now().UTC()),
	}
	s.contests[c.ID] = c
	return c.ID
}

// DemoPassword is the password of every seeded account.
const DemoPassword = "logshack-demo"

// Seed loads one account per role plus sample QSOs and a contest, for
// local development against cmd/logshack-mock.
func (s *Server) Seed(now time.Time) {
	accounts := []struct {
		callsign string
		role     model.Role
	}{
		{"W1AW", model.RoleUser},
		{"K1CA", model.RoleContestAdmin},
		{"N1LA", model.RoleLogAdmin},
		{"AA1SY", model.RoleSysop},
	}
	for _, a := range accounts {
		s.AddUser(a.callsign, DemoPassword, a.role)
	}

	bands := []string{"20m", "40m", "80m", "15m", "10m"}
	modes := []string{"SSB", "CW", "FT8"}
	day := now.UTC().AddDate(0, 0, -3)
	var qsos []model.LogEntry
	for i := 0; i < 120; i++ {
		at := day.Add(time.Duration(i) * 17 * time.Minute)
		qsos = append(qsos, model.LogEntry{
			QSODate: at.Format("20060102"),
			TimeOn:  at.Format("150405"),
			Call:    fmt.Sprintf("DL%dABC", i%10),
			Band:    bands[i%len(bands)],
			Mode:    modes[i%len(modes)],
			RSTSent: "59",
			RSTRcvd: "59",
		})
	}
	s.AddLogs("W1AW", qsos...)
	s.AddLogs("K1CA", qsos[:40]...)
	s.AddAPIKey("W1AW", "seeded upload key")

	s.AddContest("Weekend Sprint", day.Add(-time.Hour), day.Add(48*time.Hour), model.Scoring{
		QSOPoints:      1,
		BandMultiplier: map[string]float64{"80m": 2, "40m": 1.5},
		ModeBonus:      map[string]float64{"CW": 1},
	})
}
