package fakeapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/logshack/pkg/model"
)

// pageParams reads page and per_page the way the backend does: page defaults
// to 1, per_page to 50.
func pageParams(r *http.Request) model.PageRequest {
	p := model.PageRequest{}
	p.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	p.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	p.Clamp()
	return p
}

func filterParams(r *http.Request) model.LogFilter {
	q := r.URL.Query()
	return model.LogFilter{
		Callsign: strings.ToUpper(q.Get("callsign")),
		Band:     q.Get("band"),
		Mode:     q.Get("mode"),
	}
}

func matchLog(e model.LogEntry, f model.LogFilter) bool {
	if f.Callsign != "" && !strings.Contains(strings.ToUpper(e.Call), f.Callsign) {
		return false
	}
	if f.Band != "" && !strings.EqualFold(e.Band, f.Band) {
		return false
	}
	if f.Mode != "" && !strings.EqualFold(e.Mode, f.Mode) {
		return false
	}
	return true
}

// sortedLogs returns userID's QSOs matching f, newest first. Callers hold s.mu.
func (s *Server) sortedLogs(userID int64, f model.LogFilter) []model.LogEntry {
	var out []model.LogEntry
	for _, e := range s.logs[userID] {
		if matchLog(e, f) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].QSODate != out[j].QSODate {
			return out[i].QSODate > out[j].QSODate
		}
		return out[i].TimeOn > out[j].TimeOn
	})
	return out
}

func paginate(all []model.LogEntry, p model.PageRequest) model.LogPage {
	total := len(all)
	pages := (total + p.PerPage - 1) / p.PerPage
	start := (p.Page - 1) * p.PerPage
	logs := []model.LogEntry{}
	if start < total {
		end := min(start+p.PerPage, total)
		logs = all[start:end]
	}
	return model.LogPage{Logs: logs, Total: total, Pages: pages, CurrentPage: p.Page}
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	page := paginate(s.sortedLogs(u.id, filterParams(r)), pageParams(r))
	s.mu.Unlock()
	respondOK(w, page)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.Stats{Bands: map[string]int{}, Modes: map[string]int{}}
	calls := map[string]bool{}
	for _, e := range s.logs[u.id] {
		stats.TotalQSOs++
		calls[strings.ToUpper(e.Call)] = true
		if e.Band != "" {
			stats.Bands[e.Band]++
		}
		if e.Mode != "" {
			stats.Modes[e.Mode]++
		}
	}
	stats.UniqueCallsigns = len(calls)
	respondOK(w, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	logs := s.sortedLogs(u.id, filterParams(r))
	callsign := u.callsign
	s.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ADIF Export from LogShackBaby\n<adif_ver:5>3.1.4\n<programid:12>LogShackBaby\n<eoh>\n\n")
	for _, e := range logs {
		writeADIFField(&buf, "qso_date", e.QSODate)
		writeADIFField(&buf, "time_on", e.TimeOn)
		writeADIFField(&buf, "call", e.Call)
		writeADIFField(&buf, "band", e.Band)
		writeADIFField(&buf, "mode", e.Mode)
		writeADIFField(&buf, "freq", e.Freq)
		writeADIFField(&buf, "rst_sent", e.RSTSent)
		writeADIFField(&buf, "rst_rcvd", e.RSTRcvd)
		writeADIFField(&buf, "station_callsign", e.StationCallsign)
		buf.WriteString("<eor>\n\n")
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_logbook.adi"`, callsign))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func writeADIFField(buf *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(buf, "<%s:%d>%s ", name, len(value), value)
}

// handleUpload accepts an ADIF file authenticated by X-API-Key. Records are
// counted by <eor> markers; nothing is parsed or stored.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		respondError(w, http.StatusUnauthorized, "API key required")
		return
	}

	s.mu.Lock()
	var owner *apiKey
	for _, k := range s.keys {
		if k.key == key && k.IsActive {
			owner = k
			break
		}
	}
	if owner != nil {
		now := model.NewTimestamp(time.Now().UTC())
		owner.LastUsed = &now
	}
	s.mu.Unlock()
	if owner == nil {
		respondError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		respondError(w, http.StatusBadRequest, "No file selected")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	total := strings.Count(strings.ToLower(string(data)), "<eor>")
	if total == 0 {
		respondError(w, http.StatusBadRequest, "No valid records found in file")
		return
	}

	s.mu.Lock()
	up := model.Upload{
		ID:           s.id(),
		Filename:     header.Filename,
		UploadedAt:   model.NewTimestamp(time.Now().UTC()),
		TotalRecords: total,
		NewRecords:   total,
		Status:       "completed",
	}
	s.uploads[owner.userID] = append(s.uploads[owner.userID], up)
	s.mu.Unlock()

	respondOK(w, model.UploadResult{
		Message: "Upload processed successfully",
		Total:   total,
		New:     total,
	})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	uploads := append([]model.Upload{}, s.uploads[u.id]...)
	s.mu.Unlock()

	sort.Slice(uploads, func(i, j int) bool { return uploads[i].ID > uploads[j].ID })
	respondOK(w, map[string]any{"uploads": uploads})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	keys := []model.APIKey{}
	for _, k := range s.keys {
		if k.userID == u.id {
			keys = append(keys, k.APIKey)
		}
	}
	s.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	respondOK(w, map[string]any{"keys": keys})
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	k := s.issueKey(u.id, strings.TrimSpace(req.Description))
	s.mu.Unlock()

	respondCreated(w, model.CreatedAPIKey{
		APIKey:  k.key,
		Prefix:  k.Prefix,
		Message: "API key created successfully. Save this key - it will not be shown again!",
	})
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	k, found := s.keys[id]
	if !found || k.userID != u.id {
		respondError(w, http.StatusNotFound, "API key not found")
		return
	}
	delete(s.keys, id)
	respondMessage(w, "API key deleted successfully")
}

// pathID parses a numeric URL parameter, answering 404 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}
