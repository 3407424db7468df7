package app

import (
	"errors"
	"fmt"
)

// Messages shown for the flows every user goes through.
const (
	MsgSessionExpired   = "Session expired. Please login again."
	MsgLoggedOut        = "Logged out successfully"
	MsgPasswordMismatch = "Passwords do not match"
	MsgRegistered       = "Registration successful! Please login."
	MsgMFARequired      = "Enter the code from your authenticator app"
	MsgMustChange       = "You must change your password before continuing"
	MsgLoginFirst       = "Please login first"
)

var (
	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("invalid input")

	// ErrForbiddenSurface is returned for commands whose surface is not
	// visible to the current role. No request is made.
	ErrForbiddenSurface = errors.New("surface not available")
)

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level Level
	Text  string
}

func (n Notice) String() string {
	return fmt.Sprintf("[%s] %s", n.Level, n.Text)
}

// Notifier displays notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

type inputError struct {
	msg string
}

func invalid(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Is(target error) bool { return target == ErrValidation }
