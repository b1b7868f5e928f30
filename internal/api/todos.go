package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

// Ack is the generic acknowledgement payload for bulk-style operations.
type Ack struct {
	Message string `json:"message"`
}

// BulkAction is an operation applied to a set of todos at once.
type BulkAction string

const (
	BulkComplete   BulkAction = "complete"
	BulkIncomplete BulkAction = "incomplete"
	BulkDelete     BulkAction = "delete"
)

// Valid reports whether a is a known bulk action.
func (a BulkAction) Valid() bool {
	return a == BulkComplete || a == BulkIncomplete || a == BulkDelete
}

// TodoFilter is the client-side filter criteria for list queries. It is a
// pure view concern: it is never persisted as an entity, only serialized
// into query parameters per request.
type TodoFilter struct {
	// Completed filters on completion state; nil means no constraint.
	Completed *bool

	// Priority is one of the model.Priority* values, or "" for all.
	Priority string

	// Category filters on a category id, or "" for all.
	Category string

	// Search is a free-text query over name and description.
	Search string

	// DueDate filters on an exact due day (YYYY-MM-DD), or "" for all.
	DueDate string

	// Overdue, DueToday and DueThisWeek are boolean flags; false means
	// the flag is simply omitted from the query.
	Overdue     bool
	DueToday    bool
	DueThisWeek bool
}

// Query serializes the filter into query parameters, omitting every field
// that carries no constraint. Each present value becomes a string.
func (f TodoFilter) Query() url.Values {
	q := url.Values{}
	if f.Completed != nil {
		q.Set("completed", strconv.FormatBool(*f.Completed))
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.DueDate != "" {
		q.Set("due_date", f.DueDate)
	}
	if f.Overdue {
		q.Set("overdue", "true")
	}
	if f.DueToday {
		q.Set("due_today", "true")
	}
	if f.DueThisWeek {
		q.Set("due_this_week", "true")
	}
	return q
}

// IsZero reports whether the filter carries no constraint at all.
func (f TodoFilter) IsZero() bool {
	return len(f.Query()) == 0
}

// CreateTodoInput holds the user-supplied fields for a new todo.
type CreateTodoInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CategoryIDs []string   `json:"category_ids,omitempty"`
}

// UpdateTodoInput is a partial update; nil fields are left untouched
// server-side.
type UpdateTodoInput struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CategoryIDs []string   `json:"category_ids,omitempty"`
}

// todoOrder is one entry of a reorder request.
type todoOrder struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
}

// todoListResponse is the paginated list envelope.
type todoListResponse struct {
	Results []model.Todo `json:"results"`
	Count   int          `json:"count"`
}

// TodoService provides typed request/response mapping for the todo
// endpoints.
type TodoService struct {
	client *Client
}

// NewTodoService creates a TodoService on top of the given client.
func NewTodoService(c *Client) *TodoService {
	return &TodoService{client: c}
}

// List fetches todos matching the filter. It returns the result page and
// the server-side total count.
func (s *TodoService) List(ctx context.Context, filter TodoFilter) ([]model.Todo, int, error) {
	var resp todoListResponse
	if err := s.client.Get(ctx, "/todos/", filter.Query(), &resp); err != nil {
		return nil, 0, err
	}
	return resp.Results, resp.Count, nil
}

// Get fetches a single todo by id.
func (s *TodoService) Get(ctx context.Context, id string) (model.Todo, error) {
	var todo model.Todo
	if err := s.client.Get(ctx, "/todos/"+id+"/", nil, &todo); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

// Create creates a new todo. The server assigns id, order index and
// timestamps.
func (s *TodoService) Create(ctx context.Context, input CreateTodoInput) (model.Todo, error) {
	if strings.TrimSpace(input.Name) == "" {
		return model.Todo{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	if input.Priority != "" && !model.ValidPriority(input.Priority) {
		return model.Todo{}, &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", input.Priority)}
	}

	var todo model.Todo
	if err := s.client.Post(ctx, "/todos/", input, &todo); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

// Update applies a partial update to a todo and returns the server's copy.
func (s *TodoService) Update(ctx context.Context, id string, input UpdateTodoInput) (model.Todo, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return model.Todo{}, &ValidationError{Field: "name", Message: "name must not be empty"}
	}

	var todo model.Todo
	if err := s.client.Put(ctx, "/todos/"+id+"/", input, &todo); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

// Delete removes a todo by id.
func (s *TodoService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/todos/"+id+"/", nil)
}

// Toggle flips the completion flag server-side and returns the updated
// entity, including the server-computed completion timestamp.
func (s *TodoService) Toggle(ctx context.Context, id string) (model.Todo, error) {
	var todo model.Todo
	if err := s.client.Patch(ctx, "/todos/"+id+"/toggle/", nil, &todo); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

// Reorder sends the full ordered id list; each item's zero-based position
// becomes its new order index. The server persists the ordering
// atomically.
func (s *TodoService) Reorder(ctx context.Context, orderedIDs []string) (Ack, error) {
	orders := make([]todoOrder, len(orderedIDs))
	for i, id := range orderedIDs {
		orders[i] = todoOrder{ID: id, OrderIndex: i}
	}

	var ack Ack
	err := s.client.Post(ctx, "/todos/reorder/",
		map[string][]todoOrder{"todo_orders": orders}, &ack)
	if err != nil {
		return Ack{}, err
	}
	return ack, nil
}

// BulkUpdate applies one action to a set of todos.
func (s *TodoService) BulkUpdate(ctx context.Context, ids []string, action BulkAction) (Ack, error) {
	if !action.Valid() {
		return Ack{}, &ValidationError{Field: "action", Message: fmt.Sprintf("unknown bulk action %q", action)}
	}

	body := struct {
		TodoIDs []string   `json:"todo_ids"`
		Action  BulkAction `json:"action"`
	}{TodoIDs: ids, Action: action}

	var ack Ack
	if err := s.client.Post(ctx, "/todos/bulk-update/", body, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

// ClearCompleted deletes every completed todo.
func (s *TodoService) ClearCompleted(ctx context.Context) (Ack, error) {
	var ack Ack
	if err := s.client.Delete(ctx, "/todos/clear-completed/", &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

// Stats fetches the server-computed aggregate statistics.
func (s *TodoService) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	if err := s.client.Get(ctx, "/todos/stats/", nil, &stats); err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}
