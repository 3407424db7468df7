package model

import "testing"

func TestPageRequest_Clamp(t *testing.T) {
	tests := []struct {
		name        string
		input       PageRequest
		wantPage    int
		wantPerPage int
	}{
		{"defaults", PageRequest{}, 1, LogsPerPage},
		{"negative page", PageRequest{Page: -2, PerPage: 10}, 1, 10},
		{"over max", PageRequest{Page: 3, PerPage: 1000}, 3, 500},
		{"valid", PageRequest{Page: 7, PerPage: 50}, 7, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Clamp()
			if tt.input.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", tt.input.Page, tt.wantPage)
			}
			if tt.input.PerPage != tt.wantPerPage {
				t.Errorf("PerPage = %d, want %d", tt.input.PerPage, tt.wantPerPage)
			}
		})
	}
}

func TestLogFilter_Values(t *testing.T) {
	f := LogFilter{Callsign: "W1AW", Mode: "CW"}
	v := f.Values()
	if got := v.Get("callsign"); got != "W1AW" {
		t.Errorf("callsign = %q, want W1AW", got)
	}
	if got := v.Get("mode"); got != "CW" {
		t.Errorf("mode = %q, want CW", got)
	}
	if v.Has("band") {
		t.Error("empty band should not be encoded")
	}
	if f.IsZero() {
		t.Error("IsZero() = true for a populated filter")
	}
	if !(LogFilter{}).IsZero() {
		t.Error("IsZero() = false for the empty filter")
	}
}
