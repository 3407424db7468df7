package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/me/logshack/pkg/model"
)

func TestCompose(t *testing.T) {
	base := []Surface{SurfaceAPIKeys, SurfaceContestList, SurfaceLogs, SurfaceSettings, SurfaceUpload}
	with := func(extra ...Surface) []Surface {
		return newSet(base, extra).List()
	}

	tests := []struct {
		name          string
		role          model.Role
		authenticated bool
		want          []Surface
	}{
		{"anonymous", model.RoleSysop, false, []Surface{SurfaceLogin, SurfaceRegister}},
		{"user", model.RoleUser, true, with()},
		{"contestadmin", model.RoleContestAdmin, true, with(SurfaceContestAdmin)},
		{"logadmin", model.RoleLogAdmin, true, with(SurfaceLogAdmin)},
		{"sysop", model.RoleSysop, true, with(SurfaceContestAdmin, SurfaceLogAdmin, SurfaceSysop)},
		{"unknown role", model.Role("superuser"), true, with()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.role, tt.authenticated).List()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Compose(%s) mismatch (-want +got):\n%s", tt.role, diff)
			}
		})
	}
}

func TestCompose_Idempotent(t *testing.T) {
	for _, role := range model.Roles {
		a := Compose(role, true)
		b := Compose(role, true)
		if !a.Equal(b) {
			t.Errorf("Compose(%s) not idempotent: %s vs %s", role, a, b)
		}
	}
}

func TestCompose_LogAdminDoesNotSeeContestAdmin(t *testing.T) {
	s := Compose(model.RoleLogAdmin, true)
	if s.Has(SurfaceContestAdmin) {
		t.Error("logadmin must not see the contest-admin surface")
	}
	if s.Has(SurfaceSysop) {
		t.Error("logadmin must not see the sysop surface")
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		current, total int
		pages          []int
		prevOff        bool
		nextOff        bool
	}{
		{1, 1, []int{1}, true, true},
		{1, 3, []int{1, 2, 3}, true, false},
		{1, 10, []int{1, 2, 3, 4, 5}, true, false},
		{2, 10, []int{1, 2, 3, 4, 5}, false, false},
		{5, 10, []int{3, 4, 5, 6, 7}, false, false},
		{9, 10, []int{7, 8, 9, 10}, false, false},
		{10, 10, []int{8, 9, 10}, false, true},
		{42, 10, []int{8, 9, 10}, false, true},
		{7, 12, []int{5, 6, 7, 8, 9}, false, false},
		{11, 12, []int{9, 10, 11, 12}, false, false},
		{12, 12, []int{10, 11, 12}, false, true},
		{0, 4, []int{1, 2, 3, 4}, true, false},
	}
	for _, tt := range tests {
		p := Paginate(tt.current, tt.total)
		if diff := cmp.Diff(tt.pages, p.Pages); diff != "" {
			t.Errorf("Paginate(%d, %d) pages (-want +got):\n%s", tt.current, tt.total, diff)
		}
		if p.PrevDisabled != tt.prevOff || p.NextDisabled != tt.nextOff {
			t.Errorf("Paginate(%d, %d) prev/next disabled = %v/%v, want %v/%v",
				tt.current, tt.total, p.PrevDisabled, p.NextDisabled, tt.prevOff, tt.nextOff)
		}
		if len(p.Pages) > MaxPageButtons {
			t.Errorf("Paginate(%d, %d) has %d buttons", tt.current, tt.total, len(p.Pages))
		}
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate(3, 0)
	if len(p.Pages) != 0 || !p.PrevDisabled || !p.NextDisabled {
		t.Errorf("Paginate(3, 0) = %+v", p)
	}
	if p.Prev() != 1 || p.Next() != 1 {
		t.Errorf("Prev/Next on empty pager = %d/%d, want 1/1", p.Prev(), p.Next())
	}
}

func TestFormatDateTime(t *testing.T) {
	if got := FormatDate("20240301"); got != "2024-03-01" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(""); got != "-" {
		t.Errorf("FormatDate(empty) = %q", got)
	}
	if got := FormatTime("134502"); got != "13:45" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := FormatTime("0800"); got != "08:00" {
		t.Errorf("FormatTime(HHMM) = %q", got)
	}
}

func TestRenderer_PagerHiddenForSinglePage(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).Pager(Paginate(1, 1))
	if buf.Len() != 0 {
		t.Errorf("single page pager rendered %q", buf.String())
	}

	NewRenderer(&buf).Pager(Paginate(1, 3))
	want := "<Prev> (1) 2 3 [Next]   page 1 of 3\n"
	if buf.String() != want {
		t.Errorf("pager = %q, want %q", buf.String(), want)
	}
}

func TestRenderer_Leaderboard(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).Leaderboard(&model.Leaderboard{
		ContestName: "Sprint",
		Entries: []model.LeaderboardEntry{
			{Rank: 1, Callsign: "W1AW", QSOCount: 10, TotalPoints: 12.25},
			{Rank: 4, Callsign: "K1ABC", QSOCount: 2, TotalPoints: 2},
		},
	})
	out := buf.String()
	if !strings.Contains(out, "🥇 1") {
		t.Errorf("missing gold medal:\n%s", out)
	}
	if !strings.Contains(out, "12.2") && !strings.Contains(out, "12.3") {
		t.Errorf("points not rendered to one decimal:\n%s", out)
	}
	if strings.Contains(out, "🥉") {
		t.Errorf("rank 4 must not get a medal:\n%s", out)
	}
}

func TestRenderer_UploadsHumanized(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.Now = func() time.Time { return now }
	r.Uploads([]model.Upload{{
		Filename:     "a.adi",
		UploadedAt:   model.NewTimestamp(now.Add(-3 * time.Hour)),
		TotalRecords: 5,
		Status:       "completed",
	}})
	if !strings.Contains(buf.String(), "3 hours ago") {
		t.Errorf("uploads output lacks relative time:\n%s", buf.String())
	}
}

func TestReportCSV(t *testing.T) {
	rep := &model.Report{
		Fields: []string{"call", "comment"},
		Rows: []map[string]any{
			{"call": "W1AW", "comment": "hello, world"},
			{"call": "K1ABC", "comment": nil},
		},
	}
	var buf bytes.Buffer
	if err := ReportCSV(&buf, rep); err != nil {
		t.Fatal(err)
	}
	want := "call,comment\nW1AW,\"hello, world\"\nK1ABC,\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_ReportTable(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).Report(&model.Report{
		Fields: []string{"call", "band"},
		Rows:   []map[string]any{{"call": "W1AW", "band": "20m"}},
		Total:  1,
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "CALL  BAND" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "W1AW  20m" {
		t.Errorf("row = %q", lines[1])
	}
}
