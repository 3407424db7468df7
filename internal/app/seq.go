package app

// viewKey identifies a view whose data is replaced by server reads.
type viewKey string

const (
	viewLogs        viewKey = "logs"
	viewStats       viewKey = "stats"
	viewUploads     viewKey = "uploads"
	viewKeys        viewKey = "keys"
	viewMe          viewKey = "me"
	viewUsers       viewKey = "users"
	viewScopeUsers  viewKey = "scope-users"
	viewUserLogs    viewKey = "user-logs"
	viewFields      viewKey = "fields"
	viewReport      viewKey = "report"
	viewTemplates   viewKey = "templates"
	viewContests    viewKey = "contests"
	viewContest     viewKey = "contest"
	viewLeaderboard viewKey = "leaderboard"
	viewDetail      viewKey = "leaderboard-detail"
)

// ticket stamps a read with its view's sequence number and the session
// generation it was issued under.
type ticket struct {
	view viewKey
	seq  uint64
	gen  uint64
}

// begin issues the next ticket for v.
func (c *Controller) begin(v viewKey) ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq[v]++
	return ticket{view: v, seq: c.seq[v], gen: c.gen}
}

// commit applies fn if t is still the latest ticket for its view and the
// session has not changed since it was issued. Stale responses are dropped.
func (c *Controller) commit(t ticket, fn func(*State)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.gen != c.gen || t.seq != c.seq[t.view] {
		c.logger.Debug("discarding stale response",
			"view", t.view, "seq", t.seq, "latest", c.seq[t.view], "session_changed", t.gen != c.gen)
		return false
	}
	fn(&c.state)
	return true
}
