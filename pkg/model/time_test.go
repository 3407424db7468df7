package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{`"2024-03-01T12:30:00"`, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{`"2024-03-01T12:30:00.250000"`, time.Date(2024, 3, 1, 12, 30, 0, 250_000_000, time.UTC)},
		{`"2024-03-01T12:30:00Z"`, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{`"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{`null`, time.Time{}},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.input, err)
		}
		if !ts.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, ts.Time, tt.want)
		}
	}
}

func TestTimestamp_Invalid(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestTimestamp_MarshalZeroIsNull(t *testing.T) {
	data, err := json.Marshal(Timestamp{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("Marshal(zero) = %s, want null", data)
	}
}
