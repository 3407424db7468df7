package view

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/logshack/pkg/model"
)

// Renderer writes views as plain text. Now anchors relative times.
type Renderer struct {
	W   io.Writer
	Now func() time.Time
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{W: w, Now: time.Now}
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.W, format, args...)
}

// FormatDate turns an ADIF YYYYMMDD date into YYYY-MM-DD.
func FormatDate(d string) string {
	if len(d) < 8 {
		return dash(d)
	}
	return d[0:4] + "-" + d[4:6] + "-" + d[6:8]
}

// FormatTime turns an ADIF HHMM or HHMMSS time into HH:MM.
func FormatTime(t string) string {
	if len(t) < 4 {
		return dash(t)
	}
	return t[0:2] + ":" + t[2:4]
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// when renders a timestamp as "2006-01-02 15:04 (3 hours ago)".
func (r *Renderer) when(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04") + " (" + humanize.RelTime(ts.Time, r.Now(), "ago", "from now") + ")"
}

// Medal returns the medal shown next to the top three ranks.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return ""
}

// Logs renders a page of QSOs.
func (r *Renderer) Logs(logs []model.LogEntry) {
	if len(logs) == 0 {
		r.printf("No logs found.\n")
		return
	}
	r.printf("%-10s  %-5s  %-12s  %-6s  %-6s  %-4s  %-4s  %s\n", "DATE", "TIME", "CALL", "BAND", "MODE", "SENT", "RCVD", "GRID")
	for _, e := range logs {
		r.printf("%-10s  %-5s  %-12s  %-6s  %-6s  %-4s  %-4s  %s\n",
			FormatDate(e.QSODate), FormatTime(e.TimeOn), e.Call,
			dash(e.Band), dash(e.Mode), dash(e.RSTSent), dash(e.RSTRcvd), dash(e.Gridsquare))
	}
}

// Pager renders the page strip, e.g. "[Prev] 1 2 (3) 4 5 [Next]". Nothing
// is written when there is a single page.
func (r *Renderer) Pager(p Pager) {
	if p.Total <= 1 {
		return
	}
	parts := []string{button("Prev", p.PrevDisabled)}
	for _, n := range p.Pages {
		if n == p.Current {
			parts = append(parts, "("+strconv.Itoa(n)+")")
		} else {
			parts = append(parts, strconv.Itoa(n))
		}
	}
	parts = append(parts, button("Next", p.NextDisabled))
	r.printf("%s   page %d of %d\n", strings.Join(parts, " "), p.Current, p.Total)
}

func button(label string, disabled bool) string {
	if disabled {
		return "<" + label + ">"
	}
	return "[" + label + "]"
}

// LogPage renders logs with their pager and totals.
func (r *Renderer) LogPage(page *model.LogPage, pager Pager) {
	r.Logs(page.Logs)
	if page.Total > 0 {
		r.printf("\n%s QSOs\n", humanize.Comma(int64(page.Total)))
	}
	r.Pager(pager)
}

// Stats renders the log summary with per-band and per-mode counts.
func (r *Renderer) Stats(s *model.Stats) {
	r.printf("Total QSOs:        %s\n", humanize.Comma(int64(s.TotalQSOs)))
	r.printf("Unique callsigns:  %s\n", humanize.Comma(int64(s.UniqueCallsigns)))
	r.counts("Bands", s.Bands)
	r.counts("Modes", s.Modes)
}

func (r *Renderer) counts(title string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	r.printf("%s:\n", title)
	for _, k := range keys {
		r.printf("  %-8s %s\n", k, humanize.Comma(int64(m[k])))
	}
}

// UploadResult renders the outcome of an upload.
func (r *Renderer) UploadResult(res *model.UploadResult) {
	r.printf("Upload complete: %d total, %d new, %d duplicates, %d errors\n",
		res.Total, res.New, res.Duplicates, res.Errors)
}

// Uploads renders the upload history.
func (r *Renderer) Uploads(uploads []model.Upload) {
	if len(uploads) == 0 {
		r.printf("No uploads yet.\n")
		return
	}
	r.printf("%-30s  %-34s  %6s  %6s  %6s  %6s  %s\n", "FILE", "UPLOADED", "TOTAL", "NEW", "DUPES", "ERRORS", "STATUS")
	for _, u := range uploads {
		r.printf("%-30s  %-34s  %6d  %6d  %6d  %6d  %s\n",
			u.Filename, r.when(u.UploadedAt), u.TotalRecords, u.NewRecords, u.DuplicateRecords, u.ErrorRecords, u.Status)
	}
}

// APIKeys renders the key list. Only prefixes are ever known after creation.
func (r *Renderer) APIKeys(keys []model.APIKey) {
	if len(keys) == 0 {
		r.printf("No API keys. Create one to upload logs.\n")
		return
	}
	r.printf("%-6s  %-10s  %-24s  %-34s  %s\n", "ID", "PREFIX", "DESCRIPTION", "CREATED", "LAST USED")
	for _, k := range keys {
		last := "Never"
		if k.LastUsed != nil {
			last = r.when(*k.LastUsed)
		}
		r.printf("%-6d  %-10s  %-24s  %-34s  %s\n", k.ID, k.Prefix+"...", dash(k.Description), r.when(k.CreatedAt), last)
	}
}

// CreatedKey renders a newly created key. This is the only time the full
// key is shown.
func (r *Renderer) CreatedKey(k *model.CreatedAPIKey) {
	r.printf("API key created. Copy it now, it will not be shown again:\n\n  %s\n\n", k.APIKey)
}

// MFASetup renders TOTP provisioning data.
func (r *Renderer) MFASetup(s *model.MFASetup) {
	r.printf("Add this secret to your authenticator app: %s\n", s.Secret)
	if s.QRCode != "" && strings.HasPrefix(s.QRCode, "otpauth://") {
		r.printf("Provisioning URI: %s\n", s.QRCode)
	}
	r.printf("Then confirm with: logshack mfa enable <code>\n")
}

// Users renders the sysop account list.
func (r *Renderer) Users(users []model.AdminUser) {
	if len(users) == 0 {
		r.printf("No users.\n")
		return
	}
	r.printf("%-6s  %-10s  %-28s  %-12s  %-8s  %-4s  %s\n", "ID", "CALLSIGN", "EMAIL", "ROLE", "ACTIVE", "MFA", "LAST LOGIN")
	for _, u := range users {
		last := "Never"
		if u.LastLogin != nil {
			last = r.when(*u.LastLogin)
		}
		r.printf("%-6d  %-10s  %-28s  %-12s  %-8s  %-4s  %s\n",
			u.ID, u.Callsign, u.Email, u.Role, yesNo(u.IsActive), yesNo(u.MFAEnabled), last)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// LogAdminUsers renders accounts with their QSO counts.
func (r *Renderer) LogAdminUsers(users []model.LogAdminUser) {
	if len(users) == 0 {
		r.printf("No users.\n")
		return
	}
	r.printf("%-6s  %-10s  %-12s  %8s\n", "ID", "CALLSIGN", "ROLE", "QSOS")
	for _, u := range users {
		r.printf("%-6d  %-10s  %-12s  %8s\n", u.ID, u.Callsign, u.Role, humanize.Comma(int64(u.LogCount)))
	}
}

// Contests renders the contest list.
func (r *Renderer) Contests(contests []model.Contest) {
	if len(contests) == 0 {
		r.printf("No contests.\n")
		return
	}
	r.printf("%-6s  %-30s  %-10s  %-10s  %-8s  %s\n", "ID", "NAME", "START", "END", "ACTIVE", "PTS/QSO")
	for _, c := range contests {
		r.printf("%-6d  %-30s  %-10s  %-10s  %-8s  %g\n",
			c.ID, c.Name, day(c.StartDate), day(c.EndDate), yesNo(c.IsActive), c.Scoring.QSOPoints)
	}
}

func day(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02")
}

// Contest renders one contest in detail.
func (r *Renderer) Contest(c *model.Contest) {
	r.printf("Contest:  %s (#%d)\n", c.Name, c.ID)
	if c.Description != "" {
		r.printf("  %s\n", c.Description)
	}
	r.printf("  Window:  %s to %s\n", day(c.StartDate), day(c.EndDate))
	r.printf("  Active:  %s\n", yesNo(c.IsActive))
	r.printf("  Scoring: %g point(s) per QSO\n", c.Scoring.QSOPoints)
	r.printf("  Entries: %s\n", humanize.Comma(int64(c.EntryCount)))
}

// Leaderboard renders a contest ranking with medals for the podium.
func (r *Renderer) Leaderboard(lb *model.Leaderboard) {
	r.printf("%s\n\n", lb.ContestName)
	if len(lb.Entries) == 0 {
		r.printf("No entries yet.\n")
		return
	}
	r.printf("%-8s  %-10s  %6s  %10s\n", "RANK", "CALLSIGN", "QSOS", "POINTS")
	for _, e := range lb.Entries {
		rank := strconv.Itoa(e.Rank)
		if m := Medal(e.Rank); m != "" {
			rank = m + " " + rank
		}
		r.printf("%-8s  %-10s  %6d  %10.1f\n", rank, e.Callsign, e.QSOCount, e.TotalPoints)
	}
}

// LeaderboardDetail renders one participant's scored QSOs.
func (r *Renderer) LeaderboardDetail(d *model.LeaderboardDetail) {
	r.printf("%s: %s, %d QSOs, %.1f points\n\n", d.ContestName, d.Callsign, d.QSOCount, d.TotalPoints)
	if len(d.Entries) == 0 {
		return
	}
	r.printf("%-10s  %-5s  %-12s  %-6s  %-6s  %s\n", "DATE", "TIME", "CALL", "BAND", "MODE", "POINTS")
	for _, e := range d.Entries {
		r.printf("%-10s  %-5s  %-12s  %-6s  %-6s  %.1f\n",
			FormatDate(e.QSODate), FormatTime(e.TimeOn), e.Call, dash(e.Band), dash(e.Mode), e.Points)
	}
}

// Fields renders the report columns, marking those with data.
func (r *Renderer) Fields(f *model.AvailableFields) {
	has := map[string]bool{}
	for _, n := range f.FieldsWithData {
		has[n] = true
	}
	for _, n := range f.AllFields {
		mark := " "
		if has[n] {
			mark = "*"
		}
		r.printf("%s %s\n", mark, n)
	}
	r.printf("\n* field has data\n")
}

// Templates renders saved report templates.
func (r *Renderer) Templates(ts []model.ReportTemplate) {
	if len(ts) == 0 {
		r.printf("No templates.\n")
		return
	}
	r.printf("%-6s  %-24s  %-10s  %s\n", "ID", "NAME", "SHARING", "FIELDS")
	for _, t := range ts {
		sharing := "private"
		switch {
		case t.IsGlobal:
			sharing = "global"
		case t.SharedWithRole != "":
			sharing = string(t.SharedWithRole)
		}
		r.printf("%-6d  %-24s  %-10s  %s\n", t.ID, t.Name, sharing, strings.Join(t.Fields, ","))
	}
}

// Report renders report rows as an aligned table.
func (r *Renderer) Report(rep *model.Report) {
	if rep.TemplateName != "" {
		r.printf("%s\n\n", rep.TemplateName)
	}
	if len(rep.Rows) == 0 {
		r.printf("No rows.\n")
		return
	}

	widths := make([]int, len(rep.Fields))
	cells := make([][]string, len(rep.Rows))
	for i, f := range rep.Fields {
		widths[i] = len(f)
	}
	for i, row := range rep.Rows {
		cells[i] = make([]string, len(rep.Fields))
		for j, f := range rep.Fields {
			v := cell(row[f])
			cells[i][j] = v
			widths[j] = max(widths[j], len(v))
		}
	}

	line := func(vals []string) {
		for j, v := range vals {
			if j > 0 {
				r.printf("  ")
			}
			if j == len(vals)-1 {
				r.printf("%s", v)
			} else {
				r.printf("%-*s", widths[j], v)
			}
		}
		r.printf("\n")
	}
	header := make([]string, len(rep.Fields))
	for i, f := range rep.Fields {
		header[i] = strings.ToUpper(f)
	}
	line(header)
	for _, c := range cells {
		line(c)
	}
	r.printf("\n%s rows\n", humanize.Comma(int64(rep.Total)))
}

// ReportCSV writes report rows as CSV with a header line.
func ReportCSV(w io.Writer, rep *model.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rep.Fields); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rep.Rows {
		rec := make([]string, len(rep.Fields))
		for i, f := range rep.Fields {
			if row[f] != nil {
				rec[i] = cell(row[f])
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
