package model

import "time"

// Category is a cross-cutting label attached to todos (many-to-many).
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TodoCount is populated by list responses only.
	TodoCount int `json:"todo_count,omitempty"`
}
