package model

// Role is the authorization level of a LogShackBaby account.
type Role string

const (
	// RoleUser is a standard operator uploading and browsing their own log.
	RoleUser Role = "user"
	// RoleContestAdmin manages contests and runs contest reports.
	RoleContestAdmin Role = "contestadmin"
	// RoleLogAdmin inspects and resets other operators' logs.
	RoleLogAdmin Role = "logadmin"
	// RoleSysop administers user accounts and sees every surface.
	RoleSysop Role = "sysop"
)

// Roles lists every recognised role from least to most privileged.
var Roles = []Role{RoleUser, RoleContestAdmin, RoleLogAdmin, RoleSysop}

var roleRank = map[Role]int{
	RoleUser:         0,
	RoleContestAdmin: 1,
	RoleLogAdmin:     2,
	RoleSysop:        3,
}

// ParseRole converts a role name to a Role.
// Unknown or empty values map to RoleUser (least privilege).
func ParseRole(s string) Role {
	r := Role(s)
	if r.Valid() {
		return r
	}
	return RoleUser
}

// Valid reports whether r is one of the recognised roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min in the server's ordering.
// Unknown roles rank as RoleUser.
func (r Role) AtLeast(min Role) bool {
	return roleRank[ParseRole(string(r))] >= roleRank[ParseRole(string(min))]
}

func (r Role) String() string {
	return string(r)
}

// Me is the response of GET /auth/me.
type Me struct {
	ID         int64  `json:"id"`
	Callsign   string `json:"callsign"`
	Email      string `json:"email,omitempty"`
	Role       Role   `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

// AdminUser is an account as listed by the sysop user-management endpoints.
type AdminUser struct {
	ID         int64      `json:"id"`
	Callsign   string     `json:"callsign"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	IsActive   bool       `json:"is_active"`
	MFAEnabled bool       `json:"mfa_enabled"`
	CreatedAt  Timestamp  `json:"created_at"`
	LastLogin  *Timestamp `json:"last_login,omitempty"`
}

// UserInput creates or edits an account. Nil pointers are left unchanged on edit.
type UserInput struct {
	Callsign string `json:"callsign,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Role     Role   `json:"role,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// PasswordReset is returned when a sysop resets a user's password.
type PasswordReset struct {
	Message           string `json:"message"`
	TemporaryPassword string `json:"temporary_password"`
}

// LogAdminUser is an account with its QSO count, as seen by log/contest admins.
type LogAdminUser struct {
	ID       int64  `json:"id"`
	Callsign string `json:"callsign"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	LogCount int    `json:"log_count"`
}
