package model

// CategoryStats is the per-category breakdown inside Stats.
type CategoryStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Stats is the server-computed aggregate returned by GET /todos/stats/.
type Stats struct {
	TotalTodos      int                      `json:"total_todos"`
	CompletedTodos  int                      `json:"completed_todos"`
	PendingTodos    int                      `json:"pending_todos"`
	CompletionRate  float64                  `json:"completion_rate"`
	OverdueTodos    int                      `json:"overdue_todos"`
	TodayCompleted  int                      `json:"today_completed"`
	WeekCompleted   int                      `json:"week_completed"`
	CategoriesStats map[string]CategoryStats `json:"categories_stats"`
}
