package model

import (
	"testing"
	"time"
)

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh} {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%q) = false", p)
		}
	}
	for _, p := range []string{"", "urgent", "HIGH"} {
		if ValidPriority(p) {
			t.Errorf("ValidPriority(%q) = true", p)
		}
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		todo Todo
		want bool
	}{
		{"no due date", Todo{}, false},
		{"due in the future", Todo{DueDate: &future}, false},
		{"past due, open", Todo{DueDate: &past}, true},
		{"past due, completed", Todo{DueDate: &past, Completed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.todo.IsOverdue(now); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}
