package model

import "net/url"

// LogsPerPage is the fixed page size for the log list.
const LogsPerPage = 50

// LogFilter narrows the log list and export.
type LogFilter struct {
	Callsign string `json:"callsign,omitempty" yaml:"callsign"`
	Band     string `json:"band,omitempty" yaml:"band"`
	Mode     string `json:"mode,omitempty" yaml:"mode"`
}

// IsZero reports whether no filter field is set.
func (f LogFilter) IsZero() bool {
	return f == LogFilter{}
}

// Values encodes the non-empty filter fields as query parameters.
func (f LogFilter) Values() url.Values {
	v := url.Values{}
	if f.Callsign != "" {
		v.Set("callsign", f.Callsign)
	}
	if f.Band != "" {
		v.Set("band", f.Band)
	}
	if f.Mode != "" {
		v.Set("mode", f.Mode)
	}
	return v
}

// PageRequest selects a 1-based page of a paginated collection.
type PageRequest struct {
	Page    int
	PerPage int
}

// Clamp enforces page >= 1 and 1 <= per_page <= 500.
func (p *PageRequest) Clamp() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = LogsPerPage
	}
	if p.PerPage > 500 {
		p.PerPage = 500
	}
}
