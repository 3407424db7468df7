package model

// Scoring is the contest scoring configuration.
type Scoring struct {
	QSOPoints      float64            `json:"qso_points"`
	BandMultiplier map[string]float64 `json:"band_multiplier,omitempty"`
	ModeBonus      map[string]float64 `json:"mode_bonus,omitempty"`
}

// Contest is served by the separate contest service.
type Contest struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	StartDate   Timestamp      `json:"start_date"`
	EndDate     Timestamp      `json:"end_date"`
	Rules       map[string]any `json:"rules,omitempty"`
	Scoring     Scoring        `json:"scoring"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   Timestamp      `json:"created_at"`
	EntryCount  int            `json:"entry_count,omitempty"`
}

// PopulateResult is returned after scanning logs into a contest.
type PopulateResult struct {
	Message      string `json:"message"`
	NewEntries   int    `json:"new_entries"`
	TotalEntries int    `json:"total_entries"`
}

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	Callsign    string  `json:"callsign"`
	UserID      int64   `json:"user_id"`
	QSOCount    int     `json:"qso_count"`
	TotalPoints float64 `json:"total_points"`
}

// Leaderboard is the ranked list for one contest.
type Leaderboard struct {
	ContestID   int64              `json:"contest_id"`
	ContestName string             `json:"contest_name"`
	Entries     []LeaderboardEntry `json:"leaderboard"`
}

// ScoredQSO is a QSO credited to a contest entry.
type ScoredQSO struct {
	ID      int64   `json:"id"`
	QSODate string  `json:"qso_date"`
	TimeOn  string  `json:"time_on"`
	Call    string  `json:"call"`
	Band    string  `json:"band"`
	Mode    string  `json:"mode"`
	Points  float64 `json:"points"`
}

// LeaderboardDetail is one participant's scored QSOs.
type LeaderboardDetail struct {
	ContestID   int64       `json:"contest_id"`
	ContestName string      `json:"contest_name"`
	Callsign    string      `json:"callsign"`
	QSOCount    int         `json:"qso_count"`
	TotalPoints float64     `json:"total_points"`
	Entries     []ScoredQSO `json:"entries"`
}
