package model

// LogEntry is a single QSO as returned by the log endpoints.
// Dates and times use the ADIF compact forms YYYYMMDD and HHMMSS.
type LogEntry struct {
	ID              int64  `json:"id"`
	QSODate         string `json:"qso_date"`
	TimeOn          string `json:"time_on"`
	Call            string `json:"call"`
	Band            string `json:"band,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Freq            string `json:"freq,omitempty"`
	RSTSent         string `json:"rst_sent,omitempty"`
	RSTRcvd         string `json:"rst_rcvd,omitempty"`
	StationCallsign string `json:"station_callsign,omitempty"`
	Gridsquare      string `json:"gridsquare,omitempty"`
	Name            string `json:"name,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// LogPage is one server-side page of a log listing.
type LogPage struct {
	Logs        []LogEntry `json:"logs"`
	Total       int        `json:"total"`
	Pages       int        `json:"pages"`
	CurrentPage int        `json:"current_page"`
}

// UserLogs is a log page belonging to another operator (admin views).
type UserLogs struct {
	User struct {
		ID       int64  `json:"id"`
		Callsign string `json:"callsign"`
	} `json:"user"`
	LogPage
}

// Stats summarises an operator's log.
type Stats struct {
	TotalQSOs       int            `json:"total_qsos"`
	UniqueCallsigns int            `json:"unique_callsigns"`
	Bands           map[string]int `json:"bands"`
	Modes           map[string]int `json:"modes"`
}

// UploadResult is the outcome of POST /logs/upload.
type UploadResult struct {
	Message    string `json:"message,omitempty"`
	Total      int    `json:"total"`
	New        int    `json:"new"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
}

// Upload is one entry of the upload history.
type Upload struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	UploadedAt       Timestamp `json:"uploaded_at"`
	TotalRecords     int       `json:"total_records"`
	NewRecords       int       `json:"new_records"`
	DuplicateRecords int       `json:"duplicate_records"`
	ErrorRecords     int       `json:"error_records"`
	Status           string    `json:"status"`
}

// APIKey is a listed upload key. Only the prefix is ever returned after creation.
type APIKey struct {
	ID          int64      `json:"id"`
	Prefix      string     `json:"prefix"`
	Description string     `json:"description"`
	CreatedAt   Timestamp  `json:"created_at"`
	LastUsed    *Timestamp `json:"last_used"`
	IsActive    bool       `json:"is_active"`
}

// CreatedAPIKey is returned once, when a key is created.
type CreatedAPIKey struct {
	APIKey  string `json:"api_key"`
	Prefix  string `json:"prefix"`
	Message string `json:"message,omitempty"`
}
