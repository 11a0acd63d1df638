package http

import "testing"

func TestWSSubject(t *testing.T) {
	tests := []struct {
		channel, filter string
		want            string
		ok              bool
	}{
		{"", "", "clusters.snapshot.>", true},
		{"clusters", "80dd", "clusters.snapshot.80dd", true},
		{"alerts", "", "alerts.reported.>", true},
		{"alerts", "fire", "alerts.reported.fire", true},
		{"vehicles", "", "", false},
	}
	for _, tt := range tests {
		got, ok := wsSubject(tt.channel, tt.filter)
		if got != tt.want || ok != tt.ok {
			t.Errorf("wsSubject(%q, %q) = %q, %v; want %q, %v", tt.channel, tt.filter, got, ok, tt.want, tt.ok)
		}
	}
}
