package fakeapi

import (
	"crypto/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/logshack/pkg/model"
)

func adminView(u *user) model.AdminUser {
	out := model.AdminUser{
		ID:         u.id,
		Callsign:   u.callsign,
		Email:      u.email,
		Role:       u.role,
		IsActive:   u.active,
		MFAEnabled: u.mfaEnabled,
		CreatedAt:  model.NewTimestamp(u.createdAt),
	}
	if u.lastLogin != nil {
		ts := model.NewTimestamp(*u.lastLogin)
		out.LastLogin = &ts
	}
	return out
}

// sortedUsers returns all accounts by id. Callers hold s.mu.
func (s *Server) sortedUsers() []*user {
	users := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].id < users[j].id })
	return users
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := []model.AdminUser{}
	for _, u := range s.sortedUsers() {
		out = append(out, adminView(u))
	}
	s.mu.Unlock()
	respondOK(w, map[string]any{"users": out})
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Callsign == "" || in.Email == "" || in.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	s.mu.Lock()
	exists := s.userByCallsign(in.Callsign) != nil
	s.mu.Unlock()
	if exists {
		respondError(w, http.StatusBadRequest, "Callsign already exists")
		return
	}

	id := s.AddUser(in.Callsign, in.Password, role)
	s.mu.Lock()
	u := s.users[id]
	u.email = in.Email
	if in.IsActive != nil {
		u.active = *in.IsActive
	}
	view := adminView(u)
	s.mu.Unlock()

	respondCreated(w, map[string]any{"message": "User created successfully", "user": view})
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in model.UserInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Role != "" && !in.Role.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	var hash []byte
	if in.Password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if in.Email != "" {
		u.email = in.Email
	}
	if in.Role != "" {
		u.role = in.Role
	}
	if in.IsActive != nil {
		u.active = *in.IsActive
		if !u.active {
			s.dropSessions(u.id)
		}
	}
	if hash != nil {
		u.passwordHash = hash
	}
	respondOK(w, map[string]any{"message": "User updated successfully", "user": adminView(u)})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	caller := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.users[id]; !found {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if id == caller.id {
		respondError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	delete(s.users, id)
	delete(s.logs, id)
	delete(s.uploads, id)
	s.dropSessions(id)
	for kid, k := range s.keys {
		if k.userID == id {
			delete(s.keys, kid)
		}
	}
	respondMessage(w, "User deleted successfully")
}

func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	temp := rand.Text()[:12]
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.MinCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	u.passwordHash = hash
	u.mustChangePassword = true
	s.dropSessions(id)

	respondOK(w, map[string]any{
		"message":            "Password reset successfully",
		"temporary_password": temp,
		"callsign":           u.callsign,
	})
}

func (s *Server) handleScopeUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := []model.LogAdminUser{}
	for _, u := range s.sortedUsers() {
		out = append(out, model.LogAdminUser{
			ID:       u.id,
			Callsign: u.callsign,
			Email:    u.email,
			Role:     u.role,
			LogCount: len(s.logs[u.id]),
		})
	}
	s.mu.Unlock()
	respondOK(w, map[string]any{"users": out})
}

func (s *Server) handleUserLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	var out model.UserLogs
	out.User.ID = u.id
	out.User.Callsign = u.callsign
	out.LogPage = paginate(s.sortedLogs(u.id, model.LogFilter{}), pageParams(r))
	respondOK(w, out)
}

func (s *Server) handleResetUserLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	n := len(s.logs[id])
	delete(s.logs, id)
	delete(s.uploads, id)
	respondOK(w, map[string]any{
		"message":      "All logs for " + u.callsign + " have been deleted",
		"deleted_logs": n,
	})
}

// reportFields are the columns a fake report can select.
var reportFields = []string{
	"user_callsign", "qso_date", "time_on", "call", "band", "mode", "freq",
	"rst_sent", "rst_rcvd", "station_callsign", "gridsquare", "name", "comment",
}

func (s *Server) handleAvailableFields(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	seen := map[string]bool{}
	for _, logs := range s.logs {
		for _, e := range logs {
			for k, v := range logRow(e, "") {
				if v != "" {
					seen[k] = true
				}
			}
		}
	}
	s.mu.Unlock()

	withData := []string{}
	for _, f := range reportFields {
		if seen[f] {
			withData = append(withData, f)
		}
	}
	respondOK(w, model.AvailableFields{AllFields: reportFields, FieldsWithData: withData})
}

func logRow(e model.LogEntry, owner string) map[string]string {
	return map[string]string{
		"user_callsign":    owner,
		"qso_date":         e.QSODate,
		"time_on":          e.TimeOn,
		"call":             e.Call,
		"band":             e.Band,
		"mode":             e.Mode,
		"freq":             e.Freq,
		"rst_sent":         e.RSTSent,
		"rst_rcvd":         e.RSTRcvd,
		"station_callsign": e.StationCallsign,
		"gridsquare":       e.Gridsquare,
		"name":             e.Name,
		"comment":          e.Comment,
	}
}

func compactDate(d string) string {
	return strings.ReplaceAll(d, "-", "")
}

// buildReport runs fields and filters over every log. Callers hold s.mu.
func (s *Server) buildReport(fields []string, f model.ReportFilters) model.Report {
	userIDs := map[int64]bool{}
	for _, id := range f.UserIDs {
		userIDs[id] = true
	}
	from, to := compactDate(f.DateFrom), compactDate(f.DateTo)

	rows := []map[string]any{}
	for _, u := range s.sortedUsers() {
		if len(userIDs) > 0 && !userIDs[u.id] {
			continue
		}
		for _, e := range s.sortedLogs(u.id, model.LogFilter{}) {
			if (from != "" && e.QSODate < from) || (to != "" && e.QSODate > to) {
				continue
			}
			if len(f.Bands) > 0 && !containsFold(f.Bands, e.Band) {
				continue
			}
			if len(f.Modes) > 0 && !containsFold(f.Modes, e.Mode) {
				continue
			}
			all := logRow(e, u.callsign)
			row := make(map[string]any, len(fields))
			for _, name := range fields {
				if v, ok := all[name]; ok && v != "" {
					row[name] = v
				} else {
					row[name] = nil
				}
			}
			rows = append(rows, row)
		}
	}
	return model.Report{Rows: rows, Fields: fields, Total: len(rows)}
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req model.ReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		respondError(w, http.StatusBadRequest, "No fields selected")
		return
	}
	s.mu.Lock()
	report := s.buildReport(req.Fields, req.Filters)
	s.mu.Unlock()
	respondOK(w, report)
}

// visibleTemplate reports whether u may read t: owner, global, or shared
// with u's role.
func visibleTemplate(t *template, u *user) bool {
	return t.ownerID == u.id || t.IsGlobal || t.SharedWithRole == u.role
}

func templateView(t *template, u *user) model.ReportTemplate {
	out := t.ReportTemplate
	out.IsOwner = t.ownerID == u.id
	return out
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	s.mu.Lock()
	var global, shared, own []model.ReportTemplate
	for _, t := range s.templates {
		switch {
		case t.ownerID == u.id:
			own = append(own, templateView(t, u))
		case t.IsGlobal:
			global = append(global, templateView(t, u))
		case t.SharedWithRole == u.role:
			shared = append(shared, templateView(t, u))
		}
	}
	s.mu.Unlock()

	byName := func(ts []model.ReportTemplate) {
		sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })
	}
	byNewest := func(ts []model.ReportTemplate) {
		sort.Slice(ts, func(i, j int) bool { return ts[i].ID > ts[j].ID })
	}
	byName(global)
	byNewest(shared)
	byNewest(own)

	out := append(append(append([]model.ReportTemplate{}, global...), shared...), own...)
	respondOK(w, map[string]any{"templates": out})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string              `json:"name"`
		Description    string              `json:"description"`
		Fields         []string            `json:"fields"`
		Filters        model.ReportFilters `json:"filters"`
		SharedWithRole model.Role          `json:"shared_with_role"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Template name is required")
		return
	}
	if len(req.Fields) == 0 {
		respondError(w, http.StatusBadRequest, "At least one field must be selected")
		return
	}
	switch req.SharedWithRole {
	case "", model.RoleContestAdmin, model.RoleLogAdmin, model.RoleSysop:
	default:
		respondError(w, http.StatusBadRequest, "Invalid role for sharing")
		return
	}

	u := userFromContext(r.Context())
	now := model.NewTimestamp(time.Now().UTC())
	s.mu.Lock()
	t := &template{
		ReportTemplate: model.ReportTemplate{
			ID:             s.id(),
			Name:           strings.TrimSpace(req.Name),
			Description:    strings.TrimSpace(req.Description),
			Fields:         req.Fields,
			Filters:        req.Filters,
			SharedWithRole: req.SharedWithRole,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		ownerID: u.id,
	}
	s.templates[t.ID] = t
	view := templateView(t, u)
	s.mu.Unlock()

	respondCreated(w, map[string]any{"message": "Template created successfully", "template": view})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.templates[id]
	if !found || !visibleTemplate(t, u) {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	respondOK(w, map[string]any{"template": templateView(t, u)})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.templates[id]
	if !found || t.ownerID != u.id {
		respondError(w, http.StatusNotFound, "Template not found or you do not have permission to delete it")
		return
	}
	if t.IsGlobal {
		respondError(w, http.StatusForbidden, "Cannot delete global templates")
		return
	}
	delete(s.templates, id)
	respondMessage(w, "Template deleted successfully")
}

func (s *Server) handleRunTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.templates[id]
	if !found || !visibleTemplate(t, u) {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	report := s.buildReport(t.Fields, t.Filters)
	report.TemplateName = t.Name
	respondOK(w, report)
}
