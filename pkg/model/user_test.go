package model

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"contestadmin", RoleContestAdmin},
		{"logadmin", RoleLogAdmin},
		{"sysop", RoleSysop},
		{"", RoleUser},
		{"root", RoleUser},
		{"SYSOP", RoleUser},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRole_AtLeast(t *testing.T) {
	if !RoleSysop.AtLeast(RoleLogAdmin) {
		t.Error("sysop should rank at least logadmin")
	}
	if !RoleLogAdmin.AtLeast(RoleContestAdmin) {
		t.Error("logadmin should rank at least contestadmin")
	}
	if RoleUser.AtLeast(RoleContestAdmin) {
		t.Error("user should not rank at least contestadmin")
	}
	if Role("bogus").AtLeast(RoleContestAdmin) {
		t.Error("unknown role must rank as user")
	}
}

func TestSession_Valid(t *testing.T) {
	if (Session{Token: "t"}).Valid() {
		t.Error("token without role must be invalid")
	}
	if (Session{Role: RoleUser}).Valid() {
		t.Error("role without token must be invalid")
	}
	if (Session{Token: "t", Role: "admin"}).Valid() {
		t.Error("unrecognised role must be invalid")
	}
	if !(Session{Token: "t", Role: RoleLogAdmin}).Valid() {
		t.Error("token with logadmin must be valid")
	}
}
