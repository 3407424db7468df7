package model

// Session is the client's authenticated identity.
// Token and Role are either both set or both empty.
type Session struct {
	Token    string `json:"-"`
	Role     Role   `json:"role"`
	Callsign string `json:"callsign"`
}

// Valid reports whether the session carries a token and a recognised role.
func (s Session) Valid() bool {
	return s.Token != "" && s.Role.Valid()
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Callsign string `json:"callsign"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	SessionToken       string `json:"session_token"`
	Callsign           string `json:"callsign"`
	Role               string `json:"role"`
	MFARequired        bool   `json:"mfa_required"`
	MustChangePassword bool   `json:"must_change_password"`
}

// MFAVerifyRequest is the body of POST /mfa/verify.
type MFAVerifyRequest struct {
	SessionToken string `json:"session_token"`
	Token        string `json:"token"`
}

// MFAVerifyResponse is returned by POST /mfa/verify.
type MFAVerifyResponse struct {
	Message            string `json:"message"`
	MustChangePassword bool   `json:"must_change_password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Callsign string `json:"callsign"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFASetup carries the provisioning data returned by POST /mfa/setup.
type MFASetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

// ChangePasswordRequest is the body of POST /change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Message is the generic {"message": "..."} acknowledgement.
type Message struct {
	Message string `json:"message"`
}
