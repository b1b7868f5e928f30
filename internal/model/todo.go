package model

import "time"

// Priority levels as exposed by the remote API.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the API's priority values.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Todo is a task item as returned by the remote API. The server is
// authoritative for every field; the client only holds transient copies.
type Todo struct {
	// ID is assigned by the server at creation time.
	ID string `json:"id"`

	// Name is the task title. Required, non-empty.
	Name string `json:"name"`

	// Description is an optional free-text body.
	Description string `json:"description,omitempty"`

	// Completed is the completion flag.
	Completed bool `json:"completed"`

	// OrderIndex defines display order within the list.
	OrderIndex int `json:"order_index"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority"`

	// DueDate is the optional due timestamp.
	DueDate *time.Time `json:"due_date,omitempty"`

	// CompletedAt is set by the server iff Completed is true.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Categories holds the categories attached to this todo.
	Categories []Category `json:"categories,omitempty"`
}

// IsOverdue reports whether the todo is past due and not completed.
func (t Todo) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}
