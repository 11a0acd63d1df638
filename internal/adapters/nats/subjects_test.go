package natsadapter

import (
	"strings"
	"testing"
)

func TestAlertSubject(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"police", "alerts.reported.police"},
		{"fire", "alerts.reported.fire"},
		{"", "alerts.reported.unknown"},
	}
	for _, tt := range tests {
		if got := AlertSubject(tt.category); got != tt.want {
			t.Errorf("AlertSubject(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestStreamsCoverSubjects(t *testing.T) {
	subjects := []string{AlertSubject("medical"), SnapshotSubject("89c2594")}
	for _, subj := range subjects {
		matched := false
		for _, s := range Streams() {
			for _, pattern := range s.Subjects {
				prefix := strings.TrimSuffix(pattern, ">")
				if strings.HasPrefix(subj, prefix) {
					matched = true
				}
			}
		}
		if !matched {
			t.Errorf("no stream captures subject %s", subj)
		}
	}
}
