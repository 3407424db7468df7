package model

// ReportScope selects which admin API family serves report endpoints.
type ReportScope string

const (
	ScopeLogAdmin     ReportScope = "logadmin"
	ScopeContestAdmin ReportScope = "contestadmin"
)

// AvailableFields lists report columns the server knows about.
type AvailableFields struct {
	AllFields      []string `json:"all_fields"`
	FieldsWithData []string `json:"fields_with_data"`
}

// ReportFilters narrows a cross-user report.
type ReportFilters struct {
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	Bands    []string `json:"bands,omitempty"`
	Modes    []string `json:"modes,omitempty"`
	UserIDs  []int64  `json:"user_ids,omitempty"`
}

// ReportRequest is the body of POST /<scope>/report.
type ReportRequest struct {
	Fields  []string      `json:"fields"`
	Filters ReportFilters `json:"filters"`
}

// Report is a generated report: one map per row keyed by field name.
type Report struct {
	Rows         []map[string]any `json:"report"`
	Fields       []string         `json:"fields"`
	Total        int              `json:"total"`
	TemplateName string           `json:"template_name,omitempty"`
}

// ReportTemplate is a saved report definition.
type ReportTemplate struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Fields         []string      `json:"fields"`
	Filters        ReportFilters `json:"filters"`
	IsGlobal       bool          `json:"is_global"`
	SharedWithRole Role          `json:"shared_with_role,omitempty"`
	IsOwner        bool          `json:"is_owner"`
	CreatedAt      Timestamp     `json:"created_at"`
	UpdatedAt      Timestamp     `json:"updated_at"`
}
