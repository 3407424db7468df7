package app

import (
	"io"

	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/pkg/model"
)

// Command is a user action the Controller can dispatch.
type Command interface {
	// label names the action in user-facing notices, e.g. "Login".
	label() string
}

// Authentication and account commands.
type (
	Login struct {
		Callsign string
		Password string
	}
	VerifyMFA struct {
		Code string
	}
	Register struct {
		Callsign string
		Email    string
		Password string
		Confirm  string
	}
	Logout         struct{}
	EnterDashboard struct{}
	SetupMFA       struct{}
	EnableMFA      struct {
		Code string
	}
	DisableMFA struct {
		Password string
	}
	ChangePassword struct {
		Current string
		New     string
		Confirm string
	}
)

// Own-log commands.
type (
	// FetchLogs loads one page of the log list. A nil Filter keeps the
	// applied one; a different Filter replaces it and starts over at page 1.
	FetchLogs struct {
		Page   int
		Filter *model.LogFilter
	}
	FetchStats   struct{}
	FetchUploads struct{}
	Upload       struct {
		APIKey   string
		Filename string
		Reader   io.Reader
	}
	// Export downloads the filtered log as ADIF and stores it at Dest
	// (a path, a directory, or s3://bucket/key), or writes it to To when set.
	Export struct {
		Filter model.LogFilter
		Dest   string
		To     io.Writer
	}
	ListKeys  struct{}
	CreateKey struct {
		Description string
	}
	DeleteKey struct {
		ID int64
	}
)

// Sysop and admin-report commands.
type (
	ListAdminUsers  struct{}
	CreateAdminUser struct {
		Input model.UserInput
	}
	UpdateAdminUser struct {
		ID    int64
		Input model.UserInput
	}
	DeleteAdminUser struct {
		ID int64
	}
	ResetUserPassword struct {
		ID int64
	}
	ListLogAdminUsers struct {
		Scope model.ReportScope
	}
	FetchUserLogs struct {
		Scope  model.ReportScope
		UserID int64
		Page   int
	}
	ResetUserLogs struct {
		UserID int64
	}
	FetchReportFields struct {
		Scope model.ReportScope
	}
	GenerateReport struct {
		Scope   model.ReportScope
		Fields  []string
		Filters model.ReportFilters
	}
	ListTemplates struct{}
	SaveTemplate  struct {
		Template model.ReportTemplate
	}
	DeleteTemplate struct {
		ID int64
	}
	RunTemplate struct {
		ID int64
	}
)

// Contest commands.
type (
	ListContests struct{}
	GetContest   struct {
		ID int64
	}
	// SaveContest creates a contest when ID is zero and updates it otherwise.
	SaveContest struct {
		ID    int64
		Input client.ContestInput
	}
	DeleteContest struct {
		ID int64
	}
	PopulateContest struct {
		ID int64
	}
	FetchLeaderboard struct {
		ContestID int64
	}
	FetchLeaderboardDetail struct {
		ContestID int64
		UserID    int64
	}
)

func (Login) label() string                  { return "Login" }
func (VerifyMFA) label() string              { return "Verification" }
func (Register) label() string               { return "Registration" }
func (Logout) label() string                 { return "Logout" }
func (EnterDashboard) label() string         { return "Loading dashboard" }
func (SetupMFA) label() string               { return "MFA setup" }
func (EnableMFA) label() string              { return "Enabling MFA" }
func (DisableMFA) label() string             { return "Disabling MFA" }
func (ChangePassword) label() string         { return "Password change" }
func (FetchLogs) label() string              { return "Loading logs" }
func (FetchStats) label() string             { return "Loading stats" }
func (FetchUploads) label() string           { return "Loading uploads" }
func (Upload) label() string                 { return "Upload" }
func (Export) label() string                 { return "Export" }
func (ListKeys) label() string               { return "Loading API keys" }
func (CreateKey) label() string              { return "Creating API key" }
func (DeleteKey) label() string              { return "Deleting API key" }
func (ListAdminUsers) label() string         { return "Loading users" }
func (CreateAdminUser) label() string        { return "Creating user" }
func (UpdateAdminUser) label() string        { return "Updating user" }
func (DeleteAdminUser) label() string        { return "Deleting user" }
func (ResetUserPassword) label() string      { return "Password reset" }
func (ListLogAdminUsers) label() string      { return "Loading users" }
func (FetchUserLogs) label() string          { return "Loading user logs" }
func (ResetUserLogs) label() string          { return "Resetting logs" }
func (FetchReportFields) label() string      { return "Loading fields" }
func (GenerateReport) label() string         { return "Report" }
func (ListTemplates) label() string          { return "Loading templates" }
func (SaveTemplate) label() string           { return "Saving template" }
func (DeleteTemplate) label() string         { return "Deleting template" }
func (RunTemplate) label() string            { return "Running template" }
func (ListContests) label() string           { return "Loading contests" }
func (GetContest) label() string             { return "Loading contest" }
func (SaveContest) label() string            { return "Saving contest" }
func (DeleteContest) label() string          { return "Deleting contest" }
func (PopulateContest) label() string        { return "Populating contest" }
func (FetchLeaderboard) label() string       { return "Loading leaderboard" }
func (FetchLeaderboardDetail) label() string { return "Loading entry" }
